package sched

import "sync/atomic"

// Flag is a pending-work flag with one producer and one consumer.
type Flag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() { f.v.Store(true) }

// IsSet reports whether the flag is raised.
func (f *Flag) IsSet() bool { return f.v.Load() }

// Clear lowers the flag. The consumer calls it after handling the work.
func (f *Flag) Clear() { f.v.Store(false) }

// Counter accumulates tick occurrences so a stalled consumer can catch up.
type Counter struct {
	n atomic.Uint32
}

// Add records one occurrence.
func (c *Counter) Add() { c.n.Add(1) }

// Take returns the occurrences since the last call and resets the count.
func (c *Counter) Take() uint32 { return c.n.Swap(0) }
