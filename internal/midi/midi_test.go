package midi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

type fakeTransport struct {
	name   string
	writes []midi.Message
	err    error
	closed bool
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Write(msg midi.Message) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

func TestMessageEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []byte
	}{
		{"note on", Message{Type: NoteOn, Channel: 1, Data1: 60, Data2: 127}, []byte{0x91, 60, 127}},
		{"note off", Message{Type: NoteOff, Channel: 0, Data1: 60, Data2: 0}, []byte{0x80, 60, 0}},
		{"control change", Message{Type: ControlChange, Channel: 15, Data1: 74, Data2: 64}, []byte{0xBF, 74, 64}},
		{"program change drops data2", Message{Type: ProgramChange, Channel: 2, Data1: 5, Data2: 127}, []byte{0xC2, 5}},
		{"out of range values are masked", Message{Type: ControlChange, Channel: 17, Data1: 200, Data2: 255}, []byte{0xB1, 72, 127}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Encode().Bytes())
		})
	}

	assert.Nil(t, Message{Type: None, Data1: 1}.Encode())
}

func TestMessageDecodesWithGomidi(t *testing.T) {
	raw := Message{Type: ControlChange, Channel: 3, Data1: 11, Data2: 99}.Encode()

	var ch, cc, val uint8
	require.True(t, raw.GetControlChange(&ch, &cc, &val))
	assert.Equal(t, uint8(3), ch)
	assert.Equal(t, uint8(11), cc)
	assert.Equal(t, uint8(99), val)
}

func TestDispatcherFanOut(t *testing.T) {
	a := &fakeTransport{name: "a"}
	b := &fakeTransport{name: "b"}
	broken := &fakeTransport{name: "broken", err: errors.New("unplugged")}

	d := NewDispatcher(nil)
	d.Add(a, true)
	d.Add(broken, true)
	d.Add(b, false)

	d.Send(Message{Type: NoteOn, Data1: 60, Data2: 127})
	d.Send(Message{Type: None})

	assert.Len(t, a.writes, 1)
	assert.Empty(t, b.writes)

	assert.True(t, d.Toggle("b"))
	assert.True(t, d.Enabled("b"))
	d.Send(Message{Type: ProgramChange, Data1: 3})
	assert.Len(t, a.writes, 2)
	require.Len(t, b.writes, 1)
	assert.Equal(t, []byte{0xC0, 3}, b.writes[0].Bytes())

	assert.True(t, d.SetEnabled("a", false))
	assert.False(t, d.SetEnabled("missing", true))
	assert.False(t, d.Toggle("missing"))
	d.Send(Message{Type: ControlChange, Data1: 1, Data2: 2})
	assert.Len(t, a.writes, 2)
	assert.Len(t, b.writes, 2)

	assert.Equal(t, []string{"a", "broken", "b"}, d.Names())
	require.NoError(t, d.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestSerialWritesRawBytes(t *testing.T) {
	buf := &bufCloser{}
	s := NewSerial("/dev/ttyAMA0", buf)

	d := NewDispatcher(nil)
	d.Add(s, true)
	d.Send(Message{Type: ControlChange, Channel: 0, Data1: 80, Data2: 127})
	d.Send(Message{Type: ProgramChange, Channel: 9, Data1: 12})

	assert.Equal(t, []byte{0xB0, 80, 127, 0xC9, 12}, buf.Bytes())
	assert.Equal(t, SerialName, s.Name())
	require.NoError(t, s.Close())
	assert.True(t, buf.closed)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(2)
	r.Send(Message{Type: None})
	r.Send(Message{Type: NoteOn, Data1: 1})
	r.Send(Message{Type: NoteOn, Data1: 2})
	r.Send(Message{Type: NoteOn, Data1: 3})

	msgs := r.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, uint8(2), msgs[0].Data1)
	assert.Equal(t, uint8(3), msgs[1].Data1)

	r.Reset()
	assert.Equal(t, 0, r.Len())
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	Tee(a, b).Send(Message{Type: ControlChange, Data1: 7, Data2: 100})
	assert.Equal(t, a.Messages(), b.Messages())
	assert.Equal(t, "cc ch=0 7 100", a.Messages()[0].String())
}
