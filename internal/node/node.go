package node

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Node is a process that serves the ledger over HTTP.
type Node interface {
	NodeID() string
	Kind() string
	HTTPRouter() *gin.Engine
	Serve(ctx context.Context) error
}
