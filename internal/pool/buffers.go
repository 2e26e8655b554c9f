package pool

import (
	"sync"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// DNS message and buffer pools to reduce GC pressure
// Critical for high-performance DNS servers processing millions of queries

const (
	// Buffer sizes for different use cases
	SmallBufferSize  = 512   // UDP DNS queries (most common)
	MediumBufferSize = 4096  // EDNS0 responses
	LargeBufferSize  = 65535 // Maximum DNS message size
)

// MessagePool is a sync.Pool for wire.Message reuse
var MessagePool = sync.Pool{
	New: func() interface{} {
		return new(wire.Message)
	},
}

// GetMessage gets a message from the pool
func GetMessage() *wire.Message {
	poolOps.WithLabelValues("message", "get").Inc()
	return MessagePool.Get().(*wire.Message)
}

// PutMessage returns a message to the pool
// IMPORTANT: Message is reset before returning to pool
func PutMessage(msg *wire.Message) {
	if msg == nil {
		return
	}

	// Reset the message to prevent data leakage
	// This is critical for security - don't skip this!
	*msg = wire.Message{
		Question:   msg.Question[:0],
		Answer:     msg.Answer[:0],
		Authority:  msg.Authority[:0],
		Additional: msg.Additional[:0],
	}

	poolOps.WithLabelValues("message", "put").Inc()
	MessagePool.Put(msg)
}

// SmallBufferPool for UDP queries (512 bytes)
var SmallBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, SmallBufferSize)
		return &buf
	},
}

// GetSmallBuffer gets a 512-byte buffer
func GetSmallBuffer() []byte {
	poolOps.WithLabelValues("small", "get").Inc()
	bufPtr := SmallBufferPool.Get().(*[]byte)
	return (*bufPtr)[:SmallBufferSize]
}

// PutSmallBuffer returns a buffer to the pool
func PutSmallBuffer(buf []byte) {
	if cap(buf) < SmallBufferSize {
		return // Don't pool undersized buffers
	}
	buf = buf[:cap(buf)] // Reset length to capacity
	poolOps.WithLabelValues("small", "put").Inc()
	SmallBufferPool.Put(&buf)
}

// MediumBufferPool for EDNS0 responses (4096 bytes)
var MediumBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, MediumBufferSize)
		return &buf
	},
}

// GetMediumBuffer gets a 4096-byte buffer
func GetMediumBuffer() []byte {
	poolOps.WithLabelValues("medium", "get").Inc()
	bufPtr := MediumBufferPool.Get().(*[]byte)
	return (*bufPtr)[:MediumBufferSize]
}

// PutMediumBuffer returns a buffer to the pool
func PutMediumBuffer(buf []byte) {
	if cap(buf) < MediumBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	poolOps.WithLabelValues("medium", "put").Inc()
	MediumBufferPool.Put(&buf)
}

// LargeBufferPool for large responses (65535 bytes)
var LargeBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, LargeBufferSize)
		return &buf
	},
}

// GetLargeBuffer gets a 65535-byte buffer
func GetLargeBuffer() []byte {
	poolOps.WithLabelValues("large", "get").Inc()
	bufPtr := LargeBufferPool.Get().(*[]byte)
	return (*bufPtr)[:LargeBufferSize]
}

// PutLargeBuffer returns a buffer to the pool
func PutLargeBuffer(buf []byte) {
	if cap(buf) < LargeBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	poolOps.WithLabelValues("large", "put").Inc()
	LargeBufferPool.Put(&buf)
}

// GetBuffer intelligently selects the right buffer size
func GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		return GetSmallBuffer()
	case size <= MediumBufferSize:
		return GetMediumBuffer()
	default:
		return GetLargeBuffer()
	}
}

// PutBuffer returns a buffer to the appropriate pool
func PutBuffer(buf []byte) {
	capacity := cap(buf)
	switch {
	case capacity == SmallBufferSize:
		PutSmallBuffer(buf)
	case capacity == MediumBufferSize:
		PutMediumBuffer(buf)
	case capacity == LargeBufferSize:
		PutLargeBuffer(buf)
	// else: don't pool weird sizes
	}
}

// WriterPool is for buffered writers
// Useful for bulk zone transfers or logging
var WriterPool = sync.Pool{
	New: func() interface{} {
		// Return a []byte that can be used as a write buffer
		buf := make([]byte, 8192)
		return &buf
	},
}

// GetWriterBuffer gets an 8KB writer buffer
func GetWriterBuffer() []byte {
	poolOps.WithLabelValues("writer", "get").Inc()
	bufPtr := WriterPool.Get().(*[]byte)
	return *bufPtr
}

// PutWriterBuffer returns writer buffer to pool
func PutWriterBuffer(buf []byte) {
	if cap(buf) >= 8192 {
		poolOps.WithLabelValues("writer", "put").Inc()
		WriterPool.Put(&buf)
	}
}

// Stats tracks pool allocation statistics
// Useful for monitoring and tuning
type Stats struct {
	Gets uint64
	Puts uint64
	News uint64 // Allocations (pool miss)
}

// ResetPools clears all pools (useful for testing or memory pressure)
func ResetPools() {
	MessagePool = sync.Pool{
		New: func() interface{} {
			return new(wire.Message)
		},
	}

	SmallBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, SmallBufferSize)
			return &buf
		},
	}

	MediumBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, MediumBufferSize)
			return &buf
		},
	}

	LargeBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, LargeBufferSize)
			return &buf
		},
	}

	WriterPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 8192)
			return &buf
		},
	}
}

// Example usage patterns:

// Pattern 1: DNS message processing
// msg := pool.GetMessage()
// defer pool.PutMessage(msg)
// msg.Question = append(msg.Question, wire.Question{Name: name, Type: wire.TypeA, Class: wire.ClassINET})
// // ... process message ...

// Pattern 2: Buffer for packing
// buf := pool.GetSmallBuffer()
// defer pool.PutSmallBuffer(buf)
// packed, err := wire.Encode(msg)
// n := copy(buf, packed)

// Pattern 3: Intelligent buffer sizing
// expectedSize := 1024
// buf := pool.GetBuffer(expectedSize)
// defer pool.PutBuffer(buf)
