// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Handoff moves owning handles from one producer goroutine to one
// consumer goroutine over a bounded lock-free SPSC queue.
//
// Ownership transfers with the handle: after a successful Send the
// producer must not touch the handle again, and the consumer becomes
// responsible for releasing what it receives.
//
// Only Sync handles may cross; Send rejects Local handles with
// [ErrLocalHandle].
type Handoff[T any] struct {
	q    lfq.SPSC[*Shared[T]]
	slot *Shared[T]
}

// NewHandoff returns a handoff queue holding up to capacity handles.
func NewHandoff[T any](capacity int) *Handoff[T] {
	h := &Handoff[T]{}
	h.q.Init(capacity)
	return h
}

// Send enqueues s. Non-blocking: returns iox.ErrWouldBlock if the queue
// is full, in which case the caller still owns s.
func (h *Handoff[T]) Send(s *Shared[T]) error {
	if s.block("handoff").mode != Sync {
		return ErrLocalHandle
	}
	h.slot = s
	if err := h.q.Enqueue(&h.slot); err != nil {
		h.slot = nil
		return err
	}
	h.slot = nil
	return nil
}

// Recv dequeues the next handle. Non-blocking: returns iox.ErrWouldBlock
// if the queue is empty.
func (h *Handoff[T]) Recv() (*Shared[T], error) {
	return h.q.Dequeue()
}

// SendWait enqueues s, backing off while the queue is full.
func (h *Handoff[T]) SendWait(s *Shared[T]) error {
	var bo iox.Backoff
	for {
		err := h.Send(s)
		if err == nil || !iox.IsWouldBlock(err) {
			return err
		}
		bo.Wait()
	}
}

// RecvWait dequeues the next handle, backing off while the queue is empty.
func (h *Handoff[T]) RecvWait() *Shared[T] {
	var bo iox.Backoff
	for {
		s, err := h.Recv()
		if err == nil {
			return s
		}
		bo.Wait()
	}
}
