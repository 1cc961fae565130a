package bptree_test

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ssargent/dblog/pkg/bptree"
)

func TestBPlusTree_InsertAndSearch(t *testing.T) {
	tests := map[string]struct {
		tree     *bptree.BPlusTree[int, string]
		actions  []func(tree *bptree.BPlusTree[int, string])
		searches []struct {
			key      int
			expected string
			found    bool
		}
	}{
		"Insert and search integers": {
			tree: bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "one") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(2, "two") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(3, "three") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(4, "four") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(5, "five") },
			},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "one", true},
				{2, "two", true},
				{3, "three", true},
				{4, "four", true},
				{5, "five", true},
				{6, "", false},
			},
		},
		"Insert duplicate keys": {
			tree: bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "one") },
				func(tree *bptree.BPlusTree[int, string]) { tree.Insert(1, "uno") },
			},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "uno", true},
			},
		},
		"Search empty tree": {
			tree:    bptree.NewBPlusTree[int, string](4),
			actions: []func(tree *bptree.BPlusTree[int, string]){},
			searches: []struct {
				key      int
				expected string
				found    bool
			}{
				{1, "", false},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for _, action := range tt.actions {
				action(tt.tree)
			}
			for _, search := range tt.searches {
				value, found := tt.tree.Search(search.key)
				if found != search.found || value != search.expected {
					t.Errorf("Search(%d) = %v, %v; want %v, %v", search.key, value, found, search.expected, search.found)
				}
			}
		})
	}
}

func TestBPlusTree_Concurrency(t *testing.T) {
	tree := bptree.NewBPlusTree[int, string](4)

	// Insert keys concurrently
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tree.Insert(i, string(rune('a'+i-1)))
		}(i)
	}
	wg.Wait()

	// Search for keys concurrently
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, found := tree.Search(i); !found {
				t.Errorf("Expected to find key %d", i)
			}
		}(i)
	}
	wg.Wait()
}

func TestBPlusTree_OrderedIteration(t *testing.T) {
	tree := bptree.NewBPlusTree[int, int](3)
	for _, k := range []int{50, 10, 40, 20, 30, 70, 60, 0, 90, 80} {
		assert.True(t, tree.Insert(k, k*10))
	}
	assert.False(t, tree.Insert(40, 41), "existing key is replaced")
	assert.Equal(t, 10, tree.Len())
	assert.Greater(t, tree.Height(), 1)

	var keys []int
	tree.Ascend(func(k, v int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}, keys)

	keys = nil
	tree.AscendRange(15, 60, func(k, v int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{20, 30, 40, 50}, keys)

	keys = nil
	tree.AscendGreaterOrEqual(70, func(k, v int) bool {
		keys = append(keys, k)
		return len(keys) < 2
	})
	assert.Equal(t, []int{70, 80}, keys)

	v, ok := tree.Search(40)
	require.True(t, ok)
	assert.Equal(t, 41, v)
}

func TestBPlusTree_CustomCompare(t *testing.T) {
	tree := bptree.NewWithCompare[string, int](4, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	tree.Insert("Beta", 2)
	tree.Insert("alpha", 1)
	tree.Insert("ALPHA", 3)

	v, ok := tree.Search("Alpha")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, tree.Len())
}

func TestBPlusTree_MatchesSortedMap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		order := rapid.IntRange(3, 8).Draw(t, "order")
		keys := rapid.SliceOf(rapid.StringN(0, 4, -1)).Draw(t, "keys")

		tree := bptree.NewBPlusTree[string, int](order)
		want := map[string]int{}
		for i, k := range keys {
			tree.Insert(k, i)
			want[k] = i
		}
		require.Equal(t, len(want), tree.Len())

		sorted := make([]string, 0, len(want))
		for k := range want {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)

		var got []string
		tree.Ascend(func(k string, v int) bool {
			require.Equal(t, want[k], v, "value for %q", k)
			got = append(got, k)
			return true
		})
		require.Equal(t, fmt.Sprint(sorted), fmt.Sprint(got))

		for k, v := range want {
			found, ok := tree.Search(k)
			require.True(t, ok)
			require.Equal(t, v, found)
		}
	})
}
