package nt

import "github.com/rs/xid"

// A TranslationTask records one completed top-level operation for
// tracing.
type TranslationTask struct {
	ID    string
	Where string
	What  string
	PID   uint64
	DTB   uint64
	VAddr uint64
	PAddr uint64
	State string
}

// A Tracer observes completed translations. Implementations must tolerate
// being called from whatever goroutine runs the translation.
type Tracer interface {
	TranslationDone(task TranslationTask)
}

func (t *Translator) trace(
	what string,
	proc *Process,
	dtb DTB,
	addr VirtualAddress,
	res Translation,
) {
	if t.tracer == nil {
		return
	}

	task := TranslationTask{
		ID:    xid.New().String(),
		Where: t.name,
		What:  what,
		DTB:   uint64(dtb),
		VAddr: uint64(addr),
		PAddr: res.PAddr,
		State: res.State.String(),
	}
	if proc != nil {
		task.PID = proc.PID
	}

	t.tracer.TranslationDone(task)
}
