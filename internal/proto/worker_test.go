package proto_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bamsammich/fastcopy/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workerEnv = "FASTCOPY_PROTO_TEST_WORKER"

// TestMain lets the test binary double as a worker child.
func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" {
		err := proto.Serve(context.Background(), os.Stdin, os.Stdout, echoExec)
		if err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// echoExec reports success with the source path length as the byte count.
// A source named "crash" kills the process mid-job; "panic" panics.
func echoExec(j proto.JobMsg) proto.OutcomeMsg {
	switch j.Src {
	case "crash":
		os.Exit(3)
	case "panic":
		panic("boom")
	}
	return proto.OutcomeMsg{Src: j.Src, Dst: j.Dst, OK: true, Bytes: int64(len(j.Src))}
}

func encodeJobs(t *testing.T, jobs ...proto.JobMsg) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, j := range jobs {
		data, err := j.MarshalMsg(nil)
		require.NoError(t, err)
		require.NoError(t, proto.WriteFrame(&buf, proto.Frame{MsgType: proto.MsgJob, Payload: data}))
	}
	return &buf
}

func decodeOutcomes(t *testing.T, buf *bytes.Buffer) []proto.OutcomeMsg {
	t.Helper()
	var outs []proto.OutcomeMsg
	for buf.Len() > 0 {
		f, err := proto.ReadFrame(buf)
		require.NoError(t, err)
		require.Equal(t, proto.MsgOutcome, f.MsgType)
		var o proto.OutcomeMsg
		_, err = o.UnmarshalMsg(f.Payload)
		require.NoError(t, err)
		outs = append(outs, o)
	}
	return outs
}

func TestServeLoop(t *testing.T) {
	t.Parallel()

	in := encodeJobs(t,
		proto.JobMsg{Src: "/s/a", Dst: "/d/a"},
		proto.JobMsg{Src: "/s/bb", Dst: "/d/bb"},
	)
	var out bytes.Buffer

	require.NoError(t, proto.Serve(context.Background(), in, &out, echoExec))

	outs := decodeOutcomes(t, &out)
	require.Len(t, outs, 2)
	assert.Equal(t, "/s/a", outs[0].Src)
	assert.Equal(t, int64(4), outs[0].Bytes)
	assert.Equal(t, "/d/bb", outs[1].Dst)
	assert.True(t, outs[1].OK)
}

func TestServeRecoversPanic(t *testing.T) {
	t.Parallel()

	in := encodeJobs(t, proto.JobMsg{Src: "panic", Dst: "/d/p"}, proto.JobMsg{Src: "/s/ok"})
	var out bytes.Buffer

	require.NoError(t, proto.Serve(context.Background(), in, &out, echoExec))

	outs := decodeOutcomes(t, &out)
	require.Len(t, outs, 2)
	assert.False(t, outs[0].OK)
	assert.Contains(t, outs[0].Err, "boom")
	assert.True(t, outs[1].OK)
}

func TestServeRejectsWrongMessageType(t *testing.T) {
	t.Parallel()

	var in bytes.Buffer
	require.NoError(t, proto.WriteFrame(&in, proto.Frame{MsgType: proto.MsgOutcome}))

	err := proto.Serve(context.Background(), &in, &bytes.Buffer{}, echoExec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected message type")
}

func TestServeCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := encodeJobs(t, proto.JobMsg{Src: "/s/a"})
	err := proto.Serve(ctx, in, &bytes.Buffer{}, echoExec)
	assert.ErrorIs(t, err, context.Canceled)
}

func startTestWorker(t *testing.T) *proto.Worker {
	t.Helper()
	w, err := proto.StartWorker([]string{os.Args[0]}, []string{workerEnv + "=1"}, nil)
	require.NoError(t, err)
	return w
}

func TestWorkerProcess(t *testing.T) {
	t.Parallel()

	w := startTestWorker(t)
	assert.Positive(t, w.Pid())

	for _, src := range []string{"/s/one", "/s/three"} {
		out, err := w.Do(proto.JobMsg{Src: src, Dst: strings.Replace(src, "/s/", "/d/", 1)})
		require.NoError(t, err)
		assert.True(t, out.OK)
		assert.Equal(t, src, out.Src)
		assert.Equal(t, int64(len(src)), out.Bytes)
	}

	require.NoError(t, w.Close())
}

func TestWorkerProcessCrash(t *testing.T) {
	t.Parallel()

	w := startTestWorker(t)

	_, err := w.Do(proto.JobMsg{Src: "crash"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, proto.ErrWorkerExited))

	// Exit status 3 surfaces from Close.
	assert.Error(t, w.Close())
}
