package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenote/internal/domain"
)

func TestFeatureGateIsAvailable(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	sched := newFakeScheduler()

	assert.True(t, NewFeatureGate(&fakeRecognizer{available: true}, nil, sched, events, testLogger()).IsAvailable())
	assert.False(t, NewFeatureGate(&fakeRecognizer{available: false}, nil, sched, events, testLogger()).IsAvailable())
	assert.False(t, NewFeatureGate(nil, nil, sched, events, testLogger()).IsAvailable())
}

func TestFeatureGateWarnsInRestrictedEnvironment(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	sched := newFakeScheduler()
	gate := NewFeatureGate(&fakeRecognizer{available: true}, fakeEnvironment{restricted: true}, sched, events, testLogger())

	gate.WarnIfRestrictedEnvironment()

	require.Eventually(t, func() bool { return sched.pending() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, events.snapshotAdvisories(), "advisory must be delivered on the loop")

	sched.runPending()
	assert.Equal(t, []domain.AdvisoryKind{domain.AdvisoryRestrictedEnvironment}, events.snapshotAdvisories())
}

func TestFeatureGateIgnoresProbeFailures(t *testing.T) {
	t.Parallel()

	for name, env := range map[string]fakeEnvironment{
		"error":        {err: errors.New("unsupported")},
		"unrestricted": {},
	} {
		env := env
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			events := &fakeEventSink{}
			sched := newFakeScheduler()
			done := make(chan struct{})
			env.done = done
			gate := NewFeatureGate(&fakeRecognizer{available: true}, env, sched, events, testLogger())

			gate.WarnIfRestrictedEnvironment()
			<-done
			time.Sleep(5 * time.Millisecond)

			sched.runPending()
			assert.Empty(t, events.snapshotAdvisories())
		})
	}
}

func TestFeatureGateWarningDoesNotBlock(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	gate := NewFeatureGate(&fakeRecognizer{available: true}, blockingEnvironment{release: release}, newFakeScheduler(), &fakeEventSink{}, testLogger())

	returned := make(chan struct{})
	go func() {
		gate.WarnIfRestrictedEnvironment()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("WarnIfRestrictedEnvironment blocked on the probe")
	}
}

type fakeEnvironment struct {
	restricted bool
	err        error
	done       chan struct{}
}

func (f fakeEnvironment) Restricted(_ context.Context) (bool, error) {
	if f.done != nil {
		defer close(f.done)
	}
	return f.restricted, f.err
}

type blockingEnvironment struct {
	release chan struct{}
}

func (b blockingEnvironment) Restricted(ctx context.Context) (bool, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return true, nil
}
