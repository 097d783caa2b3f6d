package program

import "time"

// Stage describes a phase of checking one package.
type Stage string

const (
	StageOrder      Stage = "order"
	StageCheck      Stage = "check"
	StageValidate   Stage = "validate"
	StageSynthesize Stage = "synthesize"
	StageStorage    Stage = "storage"
)

// Status captures progress within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a module, or for the whole package when Module
// is empty.
type Event struct {
	Package string
	Module  string
	Stage   Stage
	Status  Status
	Errors  int
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// moduleObserver turns module callbacks of the checker into events.
type moduleObserver struct {
	pkg     string
	sink    ProgressSink
	started map[string]time.Time
}

func newModuleObserver(pkg string, sink ProgressSink) *moduleObserver {
	return &moduleObserver{pkg: pkg, sink: sink, started: make(map[string]time.Time)}
}

func (o *moduleObserver) ModuleStarted(path string) {
	o.started[path] = time.Now()
	o.sink.OnEvent(Event{Package: o.pkg, Module: path, Stage: StageCheck, Status: StatusWorking})
}

func (o *moduleObserver) ModuleChecked(path string, errors int) {
	status := StatusDone
	if errors > 0 {
		status = StatusError
	}
	o.sink.OnEvent(Event{
		Package: o.pkg,
		Module:  path,
		Stage:   StageCheck,
		Status:  status,
		Errors:  errors,
		Elapsed: time.Since(o.started[path]),
	})
}

func (o *moduleObserver) stage(stage Stage, status Status) {
	o.sink.OnEvent(Event{Package: o.pkg, Stage: stage, Status: status})
}
