package queue

import (
	"github.com/hibiken/asynq"
)

// NewMux binds task types to their handlers. The worker binary passes the
// result straight to asynq's server.
func NewMux(ingest asynq.Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDocumentIngest, ingest)
	return mux
}
