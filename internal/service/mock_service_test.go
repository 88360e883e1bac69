// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// mockService implements only Service
type mockService struct {
	name string
}

func (m *mockService) Name() string {
	return m.name
}

type initHook struct {
	initFn    func() error
	initCount int
}

func (h *initHook) Init() error {
	h.initCount++
	if h.initFn != nil {
		return h.initFn()
	}
	return nil
}

type runHook struct {
	runFn    func(ctx context.Context) error
	runCount int
}

func (h *runHook) Run(ctx context.Context) error {
	h.runCount++
	if h.runFn != nil {
		return h.runFn(ctx)
	}
	return nil
}

type shutdownHook struct {
	shutdownFn    func() error
	shutdownCount int
}

func (h *shutdownHook) Shutdown() error {
	h.shutdownCount++
	if h.shutdownFn != nil {
		return h.shutdownFn()
	}
	return nil
}

type mockInitializer struct {
	mockService
	initHook
}

type mockInitShutdownService struct {
	mockService
	initHook
	shutdownHook
}

type mockRunner struct {
	mockService
	runHook
}

type mockRunShutdownService struct {
	mockService
	runHook
	shutdownHook
}

func newInitializer(name string, initFn func() error) *mockInitializer {
	return &mockInitializer{mockService{name}, initHook{initFn: initFn}}
}

func newInitShutdown(name string, initFn, shutdownFn func() error) *mockInitShutdownService {
	return &mockInitShutdownService{mockService{name}, initHook{initFn: initFn}, shutdownHook{shutdownFn: shutdownFn}}
}

func newRunner(name string, runFn func(context.Context) error) *mockRunner {
	return &mockRunner{mockService{name}, runHook{runFn: runFn}}
}

func newRunShutdown(name string, runFn func(context.Context) error, shutdownFn func() error) *mockRunShutdownService {
	return &mockRunShutdownService{mockService{name}, runHook{runFn: runFn}, shutdownHook{shutdownFn: shutdownFn}}
}

// blockUntilDone runs until ctx is canceled
func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
