package midi

import "sync"

// Recorder is a Sink that keeps every message it receives. Useful for tests
// and for showing recent traffic.
type Recorder struct {
	mu    sync.Mutex
	msgs  []Message
	limit int
}

// NewRecorder creates a recorder keeping at most limit messages. Zero keeps all.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Send(msg Message) {
	if msg.Type == None {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if r.limit > 0 && len(r.msgs) > r.limit {
		r.msgs = append(r.msgs[:0], r.msgs[len(r.msgs)-r.limit:]...)
	}
}

// Messages returns a copy of the recorded messages, oldest first
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Len returns the number of recorded messages
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// Reset forgets all recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

// Tee returns a Sink that sends to every given sink in order
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(msg Message) {
		for _, s := range sinks {
			s.Send(msg)
		}
	})
}
