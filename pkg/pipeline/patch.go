package pipeline

import (
	"context"
	"strings"

	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/fault"
)

type patchJob struct {
	ctx         context.Context
	instruction string
	done        chan error
}

// SubmitPatch queues a change instruction against the generated code and
// waits for it to be applied. Patches are applied one at a time in
// submission order; concurrent submitters observe each other's results, so
// the last applied patch wins. On failure the previous code is kept.
func (c *Coordinator) SubmitPatch(ctx context.Context, instruction string) error {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return fault.New(fault.KindPipelineStage, "empty patch instruction")
	}

	job := patchJob{ctx: ctx, instruction: instruction, done: make(chan error, 1)}
	select {
	case c.patches <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return fault.New(fault.KindPipelineStage, "session closed")
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) patchWorker() {
	defer close(c.workerDone)
	for {
		select {
		case <-c.quit:
			return
		case job := <-c.patches:
			job.done <- c.applyPatch(job.ctx, job.instruction)
		}
	}
}

func (c *Coordinator) applyPatch(ctx context.Context, instruction string) error {
	c.mu.Lock()
	code := c.sess.code
	c.mu.Unlock()

	if code == "" {
		return fault.New(fault.KindPipelineStage, "no generated code to patch")
	}

	patched, err := c.coder.PatchCode(ctx, instruction, code)

	// Every patch attempt leaves an exchange in the transcript. The code
	// itself only changes on success; a failed patch keeps the previous
	// code in full.
	reply := "Applied: " + instruction
	if err != nil {
		reply = "Failed: " + err.Error()
	}
	c.mu.Lock()
	if err == nil {
		c.sess.code = patched
	}
	c.sess.transcript = append(c.sess.transcript,
		chat.New(chat.RoleUser, instruction),
		chat.New(chat.RoleAssistant, reply),
	)
	c.broadcastLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("patch failed", "err", err)
		return fault.Wrap(fault.KindPipelineStage, err)
	}
	c.log.Info("patch applied", "chars", len(patched))
	return nil
}
