package realtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/vobuild/vobuild/pkg/fault"
)

// webrtcTransport owns the peer connection, data channel, microphone, and
// speaker.
type webrtcTransport struct {
	pc  *webrtc.PeerConnection
	dc  *webrtc.DataChannel
	mic *Microphone
	spk *Speaker
}

func (t *webrtcTransport) send(raw []byte) error {
	if t.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return fault.New(fault.KindNegotiation, "control channel not open")
	}
	return t.dc.Send(raw)
}

func (t *webrtcTransport) close() error {
	t.dc.Close()
	if t.mic != nil {
		t.mic.Close()
	}
	if t.spk != nil {
		t.spk.Close()
	}
	return t.pc.Close()
}

// Connect negotiates a WebRTC voice session: broker credential, peer
// connection with a receive transceiver and the local microphone track, an
// "oai-events" data channel, then SDP exchange with the agent. Inbound
// agent audio is decoded and played on the speaker. Any failure unwinds
// completely; no audio device or connection is left open.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	token, err := c.createSession(ctx)
	if err != nil {
		return nil, err
	}

	var mic *Microphone
	var spk *Speaker
	if c.config.audio != nil {
		mic, err = NewMicrophone(c.config.audio, c.config.logger)
		if err != nil {
			return nil, err
		}
		spk = NewSpeaker(c.config.audio)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: c.config.iceServers,
	})
	if err != nil {
		if mic != nil {
			mic.Close()
		}
		return nil, negotiationErr("create peer connection", err)
	}

	unwind := func() {
		if mic != nil {
			mic.Close()
		}
		pc.Close()
	}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		unwind()
		return nil, negotiationErr("add audio transceiver", err)
	}

	if mic != nil {
		if _, err := pc.AddTrack(mic.Track()); err != nil {
			unwind()
			return nil, negotiationErr("add microphone track", err)
		}
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		unwind()
		return nil, negotiationErr("create data channel", err)
	}

	session := newSession(c.config.logger)
	session.transport = &webrtcTransport{pc: pc, dc: dc, mic: mic, spk: spk}
	if spk != nil {
		session.setAudioOut(spk.Play)
	}

	dc.OnOpen(func() {
		session.markConnected()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		session.enqueue(msg.Data)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		go session.readRemote(track)
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		session.Close()
		return nil, negotiationErr("create offer", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		session.Close()
		return nil, negotiationErr("set local description", err)
	}
	<-webrtc.GatheringCompletePromise(pc)

	answer, err := c.sendOffer(ctx, token, pc.LocalDescription().SDP)
	if err != nil {
		session.Close()
		return nil, err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		session.Close()
		return nil, negotiationErr("set remote description", err)
	}

	if mic != nil {
		if err := mic.Start(); err != nil {
			session.Close()
			return nil, fault.Wrap(fault.KindDevice, err)
		}
	}
	if spk != nil {
		if err := spk.Start(); err != nil {
			session.Close()
			return nil, fault.Wrap(fault.KindDevice, err)
		}
	}

	c.config.logger.Info("negotiation complete", "model", c.config.model)
	return session, nil
}

// sendOffer posts the SDP offer to the agent and returns the answer.
func (c *Client) sendOffer(ctx context.Context, token, sdp string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", c.config.agentURL, c.config.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(sdp)))
	if err != nil {
		return "", fmt.Errorf("realtime: build offer request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", negotiationErr("send offer", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.New(fault.KindNegotiation, "agent rejected offer with status %d: %s", resp.StatusCode, detail)
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", negotiationErr("read answer", err)
	}
	return string(answer), nil
}

// readRemote drains inbound RTP and hands each payload to the session's
// media handler for decoding and playback.
func (s *Session) readRemote(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-s.quit:
			return
		default:
		}

		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		s.handleMedia(pkt.Payload)
	}
}

func negotiationErr(op string, err error) error {
	return fault.Wrap(fault.KindNegotiation, fmt.Errorf("realtime: %s: %w", op, err))
}
