package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit_OutsideTransactionRunsAtOnce(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_DeferredUntilHooksRun(t *testing.T) {
	ctx, run := WithCommitHooks(context.Background())
	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	assert.Empty(t, order)

	run()
	assert.Equal(t, []int{1, 2}, order)

	run()
	assert.Equal(t, []int{1, 2}, order, "hooks run once")
}
