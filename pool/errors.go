package pool

import "errors"

// ErrPoolClosed is returned by Enqueue/EnqueueDetached once Close has been
// called. It is the only synchronous error the public submission surface
// returns; task-body failures surface through the returned Future instead.
var ErrPoolClosed = errors.New("pool: closed")
