package framework

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// Loop owns the background runners of a process: simulated interrupt
// sources, I/O pumps and the main polling program. All runners share
// one context; the loop stops when the context is canceled or any
// runner returns.
type Loop struct {
	runners []Runnable

	signals bool
	exitCh  chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{exitCh: make(chan struct{})}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddRunnable adds Runnable implementations.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// HandleSignals stops the loop on CtrlC and SIGTERM from the system.
func (l *Loop) HandleSignals() *Loop {
	l.signals = true
	return l
}

// Run implements Runnable. It spawns every runner, then waits for all
// of them, canceling the shared context as soon as the first returns.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if l.signals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			glog.Info("stop requested")
			cancel()
			<-sigCh
			glog.Error("stop requested again, force exit")
			close(l.exitCh)
		}()
	}

	errCh := make(chan error, len(l.runners))
	for n, runner := range l.runners {
		name := strconv.Itoa(n)
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		glog.V(4).Infof("start runner[%s]", name)
		go func(runner Runnable, name string) {
			glog.V(4).Infof("runner[%s] started", name)
			errCh <- runner.Run(ctx)
			glog.V(4).Infof("runner[%s] stopped", name)
		}(runner, name)
	}

	var errs AggregatedError
	for range l.runners {
		select {
		case <-l.exitCh:
			return errors.New("forced exit")
		case err := <-errCh:
			cancel()
			if err != context.Canceled {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := l.Run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}
