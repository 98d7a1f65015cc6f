// Package dupkeys finds repeated object keys in JSON documents. Decoding a
// layout into Go maps silently keeps the last of two partitions sharing a
// name, so the layout loader rejects such documents up front.
package dupkeys

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

// Duplicate is one repeated key. Path is the JSON Pointer of the second
// occurrence.
type Duplicate struct {
	Path string
	Key  string
}

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	path         string
	nextIndex    int
}

// Detect scans data and returns every duplicate key. maxDups <= 0 means
// unlimited.
func Detect(data []byte, maxDups int) ([]Duplicate, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		dups  []Duplicate
		stack []frame
	)
	// childPath returns the path of the value about to be read in the top frame.
	childPath := func(key string) string {
		if len(stack) == 0 {
			return ""
		}
		top := &stack[len(stack)-1]
		if top.kind == kindArray {
			p := top.path + "/" + strconv.Itoa(top.nextIndex)
			top.nextIndex++
			return p
		}
		return top.path + "/" + escape(key)
	}
	// valueDone flips the enclosing object back to expecting a key.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.kind == kindObject {
			top.expectingKey = true
		}
	}

	var pendingKey string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(stack) > 0 {
				return dups, io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return dups, err
		}
		switch v := tok.(type) {
		case j.Delim:
			switch v {
			case '{', '[':
				path := childPath(pendingKey)
				kind := kindObject
				if v == '[' {
					kind = kindArray
				}
				stack = append(stack, frame{kind: kind, keys: map[string]struct{}{}, expectingKey: kind == kindObject, path: path})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
		case string:
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.kind == kindObject && top.expectingKey {
					if _, ok := top.keys[v]; ok {
						dups = append(dups, Duplicate{Path: top.path + "/" + escape(v), Key: v})
						if maxDups > 0 && len(dups) >= maxDups {
							return dups, nil
						}
					}
					top.keys[v] = struct{}{}
					top.expectingKey = false
					pendingKey = v
					continue
				}
			}
			childPath(pendingKey)
			valueDone()
		default:
			childPath(pendingKey)
			valueDone()
		}
	}
	return dups, nil
}

func escape(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
}
