// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sweep_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/workertest"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/hostd/dispsweep/core/domain"
	coretesting "github.com/hostd/dispsweep/internal/testing"
	"github.com/hostd/dispsweep/internal/worker/sweep"
	"github.com/hostd/dispsweep/pubsub/sweepevent"
)

type WorkerSuite struct {
	testing.IsolationSuite

	clock  *testclock.Clock
	logger loggo.Logger
	hub    *pubsub.StructuredHub
	facade *MockFacade
}

var _ = gc.Suite(&WorkerSuite{})

func (s *WorkerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.clock = testclock.NewClock(time.Time{})
	s.logger = loggo.GetLogger(c.TestName())
	s.hub = pubsub.NewStructuredHub(nil)
}

func (s *WorkerSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.facade = NewMockFacade(ctrl)
	return ctrl
}

func (s *WorkerSuite) validConfig() sweep.Config {
	return sweep.Config{
		NewFacade: func() (sweep.Facade, error) { return s.facade, nil },
		Clock:     s.clock,
		Logger:    s.logger,
		Interval:  time.Minute,
		Hub:       s.hub,
	}
}

func (s *WorkerSuite) startWorker(c *gc.C, config sweep.Config) worker.Worker {
	w, err := sweep.NewWorker(config)
	c.Assert(err, jc.ErrorIsNil)
	return w
}

func (s *WorkerSuite) subscribeStarted(c *gc.C) <-chan sweepevent.StartedMessage {
	ch := make(chan sweepevent.StartedMessage, 10)
	unsub, err := s.hub.Subscribe(sweepevent.StartedTopic,
		func(_ string, msg sweepevent.StartedMessage, err error) {
			c.Check(err, jc.ErrorIsNil)
			ch <- msg
		},
	)
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(*gc.C) { unsub() })
	return ch
}

func (s *WorkerSuite) subscribeRemoved(c *gc.C) <-chan sweepevent.RemovedMessage {
	ch := make(chan sweepevent.RemovedMessage, 10)
	unsub, err := s.hub.Subscribe(sweepevent.RemovedTopic,
		func(_ string, msg sweepevent.RemovedMessage, err error) {
			c.Check(err, jc.ErrorIsNil)
			ch <- msg
		},
	)
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(*gc.C) { unsub() })
	return ch
}

func (s *WorkerSuite) subscribeCompleted(c *gc.C) <-chan sweepevent.CompletedMessage {
	ch := make(chan sweepevent.CompletedMessage, 10)
	unsub, err := s.hub.Subscribe(sweepevent.CompletedTopic,
		func(_ string, msg sweepevent.CompletedMessage, err error) {
			c.Check(err, jc.ErrorIsNil)
			ch <- msg
		},
	)
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(*gc.C) { unsub() })
	return ch
}

func (s *WorkerSuite) waitCompleted(c *gc.C, ch <-chan sweepevent.CompletedMessage) sweepevent.CompletedMessage {
	select {
	case msg := <-ch:
		return msg
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for completed event")
	}
	return sweepevent.CompletedMessage{}
}

// disp returns a domain the worker should remove.
func disp(name string) domain.Domain {
	return domain.Domain{
		Name:        name,
		Class:       domain.ClassDisposable,
		Power:       domain.PowerHalted,
		AutoCleanup: true,
	}
}

func (s *WorkerSuite) TestFirstPassRunsImmediately(c *gc.C) {
	defer s.setupMocks(c).Finish()
	completed := s.subscribeCompleted(c)

	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, nil)
	s.facade.EXPECT().Close().Return(nil)

	w := s.startWorker(c, s.validConfig())

	// No clock advance: the worker must not wait an interval before
	// its first pass.
	s.waitCompleted(c, completed)
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestRemovesAndPublishes(c *gc.C) {
	defer s.setupMocks(c).Finish()
	started := s.subscribeStarted(c)
	removed := s.subscribeRemoved(c)
	completed := s.subscribeCompleted(c)

	running := disp("disp2222")
	running.Power = domain.PowerRunning
	s.facade.EXPECT().ListDomains(gomock.Any()).Return([]domain.Domain{
		disp("disp1111"), running,
	}, nil)
	s.facade.EXPECT().RemoveDomain(gomock.Any(), "disp1111").Return(nil)
	s.facade.EXPECT().Close().Return(nil)

	w := s.startWorker(c, s.validConfig())

	select {
	case msg := <-started:
		c.Check(msg, gc.DeepEquals, sweepevent.StartedMessage{})
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for started event")
	}
	select {
	case msg := <-removed:
		c.Check(msg, gc.DeepEquals, sweepevent.RemovedMessage{Name: "disp1111"})
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for removed event")
	}
	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{
		Removed: 1,
		Skipped: 1,
	})
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestDryRunReportsWithoutRemoving(c *gc.C) {
	defer s.setupMocks(c).Finish()
	started := s.subscribeStarted(c)
	removed := s.subscribeRemoved(c)
	completed := s.subscribeCompleted(c)

	s.facade.EXPECT().ListDomains(gomock.Any()).Return([]domain.Domain{
		disp("disp1111"),
	}, nil)
	s.facade.EXPECT().Close().Return(nil)

	config := s.validConfig()
	config.DryRun = true
	w := s.startWorker(c, config)

	select {
	case msg := <-started:
		c.Check(msg, gc.DeepEquals, sweepevent.StartedMessage{DryRun: true})
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for started event")
	}
	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{
		WouldRemove: 1,
	})
	workertest.CleanKill(c, w)

	time.Sleep(coretesting.ShortWait)
	select {
	case msg := <-removed:
		c.Fatalf("unexpected removed event for %q", msg.Name)
	default:
	}
}

func (s *WorkerSuite) TestTicksRunFreshPasses(c *gc.C) {
	defer s.setupMocks(c).Finish()
	completed := s.subscribeCompleted(c)

	// Each pass opens and closes its own connection.
	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, nil).Times(2)
	s.facade.EXPECT().Close().Return(nil).Times(2)

	config := s.validConfig()
	var opens int32
	newFacade := config.NewFacade
	config.NewFacade = func() (sweep.Facade, error) {
		atomic.AddInt32(&opens, 1)
		return newFacade()
	}
	w := s.startWorker(c, config)

	s.waitCompleted(c, completed)
	c.Assert(s.clock.WaitAdvance(time.Minute, coretesting.LongWait, 1), jc.ErrorIsNil)
	s.waitCompleted(c, completed)
	c.Check(atomic.LoadInt32(&opens), gc.Equals, int32(2))
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestEnumerationFailureDoesNotKillWorker(c *gc.C) {
	defer s.setupMocks(c).Finish()
	completed := s.subscribeCompleted(c)

	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, errors.New("hostd not answering"))
	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, nil)
	s.facade.EXPECT().Close().Return(nil).Times(2)

	w := s.startWorker(c, s.validConfig())

	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{
		Error: "enumerating domains: hostd not answering",
	})
	workertest.CheckAlive(c, w)

	c.Assert(s.clock.WaitAdvance(time.Minute, coretesting.LongWait, 1), jc.ErrorIsNil)
	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{})
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestConnectFailureDoesNotKillWorker(c *gc.C) {
	defer s.setupMocks(c).Finish()
	completed := s.subscribeCompleted(c)

	// Second pass gets a working connection.
	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, nil)
	s.facade.EXPECT().Close().Return(nil)

	config := s.validConfig()
	var calls int32
	config.NewFacade = func() (sweep.Facade, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("hostd socket missing")
		}
		return s.facade, nil
	}
	w := s.startWorker(c, config)

	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{
		Error: "connecting to hostd: hostd socket missing",
	})
	workertest.CheckAlive(c, w)

	c.Assert(s.clock.WaitAdvance(time.Minute, coretesting.LongWait, 1), jc.ErrorIsNil)
	c.Check(s.waitCompleted(c, completed), gc.DeepEquals, sweepevent.CompletedMessage{})
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestKillInterruptsPass(c *gc.C) {
	defer s.setupMocks(c).Finish()
	completed := s.subscribeCompleted(c)

	removing := make(chan struct{})
	unblock := make(chan struct{})
	closed := make(chan struct{})
	s.facade.EXPECT().ListDomains(gomock.Any()).Return([]domain.Domain{
		disp("disp1111"), disp("disp2222"),
	}, nil)
	s.facade.EXPECT().RemoveDomain(gomock.Any(), "disp1111").DoAndReturn(
		func(context.Context, string) error {
			close(removing)
			<-unblock
			return nil
		},
	)
	// No expectation for disp2222: killing the worker mid-pass must
	// stop it from starting another removal.
	s.facade.EXPECT().Close().DoAndReturn(func() error {
		close(closed)
		return nil
	})

	w := s.startWorker(c, s.validConfig())

	select {
	case <-removing:
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for removal to start")
	}
	w.Kill()
	close(unblock)

	select {
	case <-closed:
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for connection close")
	}
	err := workertest.CheckKilled(c, w)
	c.Assert(err, jc.ErrorIsNil)

	// An interrupted pass publishes no completed event.
	time.Sleep(coretesting.ShortWait)
	select {
	case msg := <-completed:
		c.Fatalf("unexpected completed event: %+v", msg)
	default:
	}
}

func (s *WorkerSuite) TestNilHub(c *gc.C) {
	defer s.setupMocks(c).Finish()

	done := make(chan struct{})
	s.facade.EXPECT().ListDomains(gomock.Any()).Return(nil, nil)
	s.facade.EXPECT().Close().DoAndReturn(func() error {
		close(done)
		return nil
	})

	config := s.validConfig()
	config.Hub = nil
	w := s.startWorker(c, config)

	select {
	case <-done:
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for pass")
	}
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestValidateConfig(c *gc.C) {
	s.testValidateConfig(c, func(config *sweep.Config) {
		config.NewFacade = nil
	}, `nil NewFacade not valid`)

	s.testValidateConfig(c, func(config *sweep.Config) {
		config.Clock = nil
	}, `nil Clock not valid`)

	s.testValidateConfig(c, func(config *sweep.Config) {
		config.Logger = nil
	}, `nil Logger not valid`)

	s.testValidateConfig(c, func(config *sweep.Config) {
		config.Interval = 0
	}, `non-positive Interval not valid`)
}

func (s *WorkerSuite) testValidateConfig(c *gc.C, f func(*sweep.Config), expect string) {
	config := s.validConfig()
	f(&config)
	w, err := sweep.NewWorker(config)
	if !c.Check(w, gc.IsNil) {
		workertest.DirtyKill(c, w)
	}
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(err, gc.ErrorMatches, expect)
}
