package vbuf

import "github.com/sirupsen/logrus"

// Option is a functional option for configuring a VirtualBuffer.
type Option func(*VirtualBuffer)

// WithCacheSize sets the read-cache budget in bytes.
func WithCacheSize(size int) Option {
	return func(b *VirtualBuffer) {
		if size > 0 {
			b.cacheSize = size
		}
	}
}

// WithLogger sets the logger. The buffer is silent by default.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *VirtualBuffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics attaches prometheus metrics. Without this option no metrics
// are collected.
func WithMetrics(m *Metrics) Option {
	return func(b *VirtualBuffer) {
		b.metrics = m
	}
}
