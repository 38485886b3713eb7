package auxbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptChannel scripts one reply per transaction attempt. Flush advances to
// the next scripted reply, mirroring a real channel where flushing discards
// whatever the previous attempt left behind.
type scriptChannel struct {
	script   [][]byte
	cur      []byte
	writes   [][]byte
	reads    int
	writeErr error
}

func (s *scriptChannel) Read(p []byte) (int, error) {
	s.reads++
	if len(s.cur) == 0 {
		return 0, nil // timed out
	}
	n := copy(p, s.cur)
	s.cur = s.cur[n:]
	return n, nil
}

func (s *scriptChannel) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (s *scriptChannel) Flush() error {
	if len(s.script) > 0 {
		s.cur, s.script = s.script[0], s.script[1:]
	} else {
		s.cur = nil
	}
	return nil
}

// noisyChannel never produces a header byte.
type noisyChannel struct {
	writes int
}

func (n *noisyChannel) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0xaa
	}
	return len(p), nil
}

func (n *noisyChannel) Write(p []byte) (int, error) {
	n.writes++
	return len(p), nil
}

func (n *noisyChannel) Flush() error { return nil }

func testCommunicator(opts ...Option) *Communicator {
	opts = append([]Option{
		WithSource(TargetApp),
		WithDevice("test"),
		WithReadTimeout(100 * time.Millisecond),
	}, opts...)
	return NewCommunicator(opts...)
}

func TestSendCommand(t *testing.T) {
	request := []byte{0x3b, 0x03, 0x20, 0x12, 0x05, 0xc6}
	reply := []byte{0x3b, 0x05, 0x12, 0x20, 0x05, 0xaa, 0xbb, 0x5f}

	testCases := []struct {
		name   string
		script [][]byte
	}{
		{"clean reply", [][]byte{reply}},
		{"garbage before header", [][]byte{append([]byte{0x00, 0xff, 0x12}, reply...)}},
		{"trailing stale bytes", [][]byte{append(append([]byte(nil), reply...), 0x42, 0x42)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &scriptChannel{script: tc.script}
			data, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
			require.NoError(t, err)
			require.Equal(t, []byte{0xaa, 0xbb}, data)
			require.Equal(t, [][]byte{request}, ch.writes)
		})
	}
}

func TestSendCommandRetryBound(t *testing.T) {
	corrupted := []byte{0x3b, 0x05, 0x12, 0x20, 0x05, 0xaa, 0xbb, 0x00}
	ch := &scriptChannel{script: [][]byte{corrupted, corrupted, corrupted, corrupted}}

	_, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
	require.Error(t, err)
	require.Len(t, ch.writes, 3, "exactly 3 send attempts")
	var cerr *ChecksumError
	require.ErrorAs(t, err, &cerr)
}

func TestSendCommandReadTimeout(t *testing.T) {
	ch := &scriptChannel{} // nothing ever arrives
	_, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
	require.Error(t, err)
	require.Len(t, ch.writes, 3)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestSendCommandWriteFailure(t *testing.T) {
	ch := &scriptChannel{writeErr: errors.New("port gone")}
	_, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
	require.Error(t, err)
	require.Zero(t, ch.reads, "no read after a failed write")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "write", terr.Op)
}

func TestSendCommandReplyFiltering(t *testing.T) {
	wrongSource := NewPacket(TargetAZM, TargetApp, Command(0x05), []byte{0x01}).Bytes()
	wrongCommand := NewPacket(TargetFocuser, TargetApp, Command(0x06), []byte{0x01}).Bytes()
	wrongDestination := NewPacket(TargetFocuser, TargetHC, Command(0x05), []byte{0x01}).Bytes()
	good := NewPacket(TargetFocuser, TargetApp, Command(0x05), []byte{0x02}).Bytes()

	testCases := []struct {
		name  string
		stale []byte
	}{
		{"wrong source", wrongSource},
		{"wrong command", wrongCommand},
		{"wrong destination", wrongDestination},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ch := &scriptChannel{script: [][]byte{tc.stale, good}}
			data, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
			require.NoError(t, err)
			require.Equal(t, []byte{0x02}, data)
			require.Len(t, ch.writes, 2, "mismatched reply triggers a retry")
		})
	}
}

func TestSendCommandMismatchExhausted(t *testing.T) {
	stale := NewPacket(TargetAZM, TargetApp, Command(0x05), nil).Bytes()
	ch := &scriptChannel{script: [][]byte{stale, stale, stale}}

	_, err := testCommunicator().SendCommand(ch, TargetFocuser, Command(0x05), nil)
	require.Error(t, err)
	require.Len(t, ch.writes, 3)
	var merr *MismatchError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, TargetAZM, merr.Reply.Source)
}

func TestSendCommandNoisyLineDeadline(t *testing.T) {
	ch := &noisyChannel{}
	c := testCommunicator(WithReadTimeout(20 * time.Millisecond))

	start := time.Now()
	_, err := c.SendCommand(ch, TargetFocuser, Command(0x05), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDeadline)
	require.Equal(t, 3, ch.writes)
	require.Less(t, time.Since(start), time.Second)
}

func TestCommandBlind(t *testing.T) {
	reply := NewPacket(TargetFocuser, TargetApp, CmdFocCalibEnable, []byte{0x01}).Bytes()
	ch := &scriptChannel{script: [][]byte{reply}}

	c := testCommunicator()
	require.NoError(t, c.CommandBlind(ch, TargetFocuser, CmdFocCalibEnable, []byte{0x01, 0x00}))
	require.Len(t, ch.writes, 1)
}

func TestCommandNoPayload(t *testing.T) {
	reply := NewPacket(TargetGPS, TargetApp, CmdGetVersion, []byte{0x01, 0x02}).Bytes()
	ch := &scriptChannel{script: [][]byte{reply}}

	c := testCommunicator()
	data, err := c.Command(ch, TargetGPS, CmdGetVersion)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, data)

	// the request itself carries no payload
	require.Len(t, ch.writes, 1)
	require.Equal(t, byte(0x03), ch.writes[0][1])
}

func TestReadPacketChecksumDiagnostics(t *testing.T) {
	raw := NewPacket(TargetFocuser, TargetApp, Command(0x05), []byte{0xaa}).Bytes()
	raw[5] ^= 0x10
	ch := &scriptChannel{script: [][]byte{raw}}
	require.NoError(t, ch.Flush())

	c := testCommunicator()
	pkt, err := c.ReadPacket(ch)
	var cerr *ChecksumError
	require.ErrorAs(t, err, &cerr)
	require.NotNil(t, pkt, "fields available for inspection")
	require.Equal(t, TargetFocuser, pkt.Source)
}

func TestDefaults(t *testing.T) {
	c := NewCommunicator()
	require.Equal(t, TargetNexRemote, c.Source)
	require.Equal(t, DefaultRetries, c.Retries)
	require.Equal(t, DefaultReadTimeout, c.ReadTimeout)
}
