// Package svcrunner wraps kardianos/service so every cmd/ binary can run
// either as a foreground process or install itself as a system service
// (systemd, launchd, Windows service) without duplicating the boilerplate.
package svcrunner

import (
	"context"

	"github.com/kardianos/service"

	"svasr/pkg/logger"
)

// program adapts a start/stop pair of funcs to the kardianos/service.Interface.
type program struct {
	start  func(ctx context.Context) error
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		if err := p.start(ctx); err != nil {
			logger.Error("service exited with error", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}
	return nil
}

// Run installs/runs name as a kardianos/service-managed daemon if action is
// "install", "uninstall", "start", "stop", "restart", or runs start in the foreground
// (blocking until ctx is canceled or the process receives a stop signal)
// for any other action, including the empty string.
func Run(name, displayName, description, action string, start func(ctx context.Context) error) error {
	prg := &program{start: start}
	svcConfig := &service.Config{
		Name:        name,
		DisplayName: displayName,
		Description: description,
	}

	svc, err := service.New(prg, svcConfig)
	if err != nil {
		return err
	}

	switch action {
	case "install", "uninstall", "start", "stop", "restart":
		return service.Control(svc, action)
	default:
		return svc.Run()
	}
}
