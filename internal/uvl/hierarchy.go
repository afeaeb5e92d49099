package uvl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is an ordered mapping from line text to nested nodes. Leaves are empty
// nodes. Keys keep the order in which they were first seen.
type Node struct {
	keys     []string
	children map[string]*Node
}

func NewNode() *Node {
	return &Node{children: map[string]*Node{}}
}

// Set inserts key with a fresh empty child and returns that child. Setting an
// existing key keeps its position but discards its previous children.
func (n *Node) Set(key string) *Node {
	if n.children == nil {
		n.children = map[string]*Node{}
	}
	if _, ok := n.children[key]; !ok {
		n.keys = append(n.keys, key)
	}
	child := NewNode()
	n.children[key] = child
	return child
}

func (n *Node) Get(key string) (*Node, bool) {
	child, ok := n.children[key]
	return child, ok
}

func (n *Node) Keys() []string {
	return append([]string(nil), n.keys...)
}

func (n *Node) Len() int {
	return len(n.keys)
}

// ParseHierarchy nests the lines of r by indentation. Inconsistent
// indentation never fails; only read errors are returned.
func ParseHierarchy(r io.Reader) (*Node, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy: %w", err)
	}

	root := NewNode()
	fill(root, buildTree(lines))
	return root, nil
}

// ParseHierarchyString is ParseHierarchy over an in-memory text. Text that
// cannot be scanned, such as a line longer than maxLineSize, yields an empty
// node.
func ParseHierarchyString(text string) *Node {
	node, err := ParseHierarchy(strings.NewReader(text))
	if err != nil {
		return NewNode()
	}
	return node
}

func fill(n *Node, entries []*entry) {
	for _, e := range entries {
		fill(n.Set(e.text), e.children)
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent renders the node as indented JSON.
func (n *Node) MarshalIndent(indent string) ([]byte, error) {
	raw, err := n.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, key := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := n.children[key].encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

var errNotObject = errors.New("hierarchy values must be JSON objects")

func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	*n = Node{children: map[string]*Node{}}
	if err := n.decode(dec); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data in hierarchy JSON")
	}
	return nil
}

func (n *Node) decode(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errNotObject
		}
		if err := n.Set(key).decode(dec); err != nil {
			return err
		}
	}
	// closing brace
	_, err = dec.Token()
	return err
}
