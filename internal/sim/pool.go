package sim

import (
	"sync"

	"github.com/san-kum/dilasim/internal/dynamo"
)

// BufferPool recycles particle buffers of one size so back-to-back runs in a
// sweep do not reallocate their scratch store.
type BufferPool struct {
	pool sync.Pool
	size int
}

func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]dynamo.Particle, size)
			},
		},
	}
}

func (p *BufferPool) Size() int { return p.size }

func (p *BufferPool) Get() []dynamo.Particle {
	return p.pool.Get().([]dynamo.Particle)
}

func (p *BufferPool) Put(ps []dynamo.Particle) {
	if len(ps) == p.size {
		clear(ps)
		p.pool.Put(ps)
	}
}

func (p *BufferPool) GetAndCopy(src []dynamo.Particle) []dynamo.Particle {
	dst := p.Get()
	copy(dst, src)
	return dst
}
