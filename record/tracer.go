package record

import (
	"log"

	"github.com/Skyrano/icebox/nt"
)

// translationEntry is one translation row in the database.
type translationEntry struct {
	ID    string
	Where string
	What  string
	PID   uint64
	DTB   uint64
	VAddr uint64
	PAddr uint64
	State string
}

// A logTracer writes one line per translation to a standard logger.
type logTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a tracer that logs every translation.
func NewLogTracer(logger *log.Logger) nt.Tracer {
	return &logTracer{logger: logger}
}

// TranslationDone writes the completed translation to the log.
func (t *logTracer) TranslationDone(task nt.TranslationTask) {
	t.logger.Printf(
		"%s, %s, %s, pid %d, dtb 0x%x, 0x%x -> 0x%x, %s\n",
		task.ID,
		task.Where,
		task.What,
		task.PID,
		task.DTB,
		task.VAddr,
		task.PAddr,
		task.State,
	)
}

// A dbTracer records translations through a DataRecorder.
type dbTracer struct {
	recorder DataRecorder
}

// NewDBTracer creates a tracer that records every translation in the
// database behind the recorder.
func NewDBTracer(recorder DataRecorder) nt.Tracer {
	t := &dbTracer{recorder: recorder}

	t.recorder.CreateTable("translations", translationEntry{})

	return t
}

// TranslationDone records the completed translation.
func (t *dbTracer) TranslationDone(task nt.TranslationTask) {
	t.recorder.InsertData("translations", translationEntry{
		ID:    task.ID,
		Where: task.Where,
		What:  task.What,
		PID:   task.PID,
		DTB:   task.DTB,
		VAddr: task.VAddr,
		PAddr: task.PAddr,
		State: task.State,
	})
}
