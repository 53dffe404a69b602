//go:build rledebug

package IntervalTree

import (
	"errors"
	"testing"
)

func TestTree_PanicsOnIndex(t *testing.T) {
	tree := mustNew[int](t, 16)
	defer func() {
		var ie *IndexError
		if err, _ := recover().(error); !errors.As(err, &ie) || ie.Index != 16 {
			t.Errorf("recovered %v, want *IndexError for 16", err)
		}
	}()
	tree.GetData(16)
}
