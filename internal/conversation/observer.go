package conversation

// Observer is notified synchronously on the goroutine driving the
// conversation. Implementations must return quickly; a slow observer
// stalls the loop.
type Observer interface {
	StateChanged(State)
	TranscriptReceived(text string)
	ResponseReady(text string)
	ErrorOccurred(err error)
}

// Callbacks adapts plain functions to Observer. Nil fields are skipped.
type Callbacks struct {
	OnState      func(State)
	OnTranscript func(string)
	OnResponse   func(string)
	OnError      func(error)
}

func (c Callbacks) StateChanged(s State) {
	if c.OnState != nil {
		c.OnState(s)
	}
}

func (c Callbacks) TranscriptReceived(text string) {
	if c.OnTranscript != nil {
		c.OnTranscript(text)
	}
}

func (c Callbacks) ResponseReady(text string) {
	if c.OnResponse != nil {
		c.OnResponse(text)
	}
}

func (c Callbacks) ErrorOccurred(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

type observers []Observer

func (o observers) StateChanged(s State) {
	for _, x := range o {
		x.StateChanged(s)
	}
}

func (o observers) TranscriptReceived(text string) {
	for _, x := range o {
		x.TranscriptReceived(text)
	}
}

func (o observers) ResponseReady(text string) {
	for _, x := range o {
		x.ResponseReady(text)
	}
}

func (o observers) ErrorOccurred(err error) {
	for _, x := range o {
		x.ErrorOccurred(err)
	}
}
