// Package uitree parses Android UI hierarchy dumps (Appium page source).
package uitree

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Bounds is an element's screen rectangle.
type Bounds struct {
	X, Y, Width, Height int
}

// Node is one element of the hierarchy.
type Node struct {
	Class       string
	Text        string
	ResourceID  string
	ContentDesc string
	Bounds      Bounds
	Enabled     bool
	Displayed   bool
	Clickable   bool
	Depth       int
	Children    []*Node
}

// Labeled reports whether the node carries anything a locator can target.
func (n *Node) Labeled() bool {
	return n.Text != "" || n.ResourceID != "" || n.ContentDesc != ""
}

// Parse parses page source XML and returns every node in document order.
// Both the UIAutomator dump format (class name as tag) and <node> elements are accepted.
func Parse(source string) ([]*Node, error) {
	decoder := xml.NewDecoder(strings.NewReader(source))

	var nodes []*Node
	foundHierarchy := false
	var parseNode func(depth int) (*Node, error)

	parseNode = func(depth int) (*Node, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				if t.Name.Local == "hierarchy" {
					foundHierarchy = true
					continue
				}

				n := &Node{Class: t.Name.Local, Depth: depth, Displayed: true}
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "text":
						n.Text = attr.Value
					case "resource-id":
						n.ResourceID = attr.Value
					case "content-desc":
						n.ContentDesc = attr.Value
					case "class":
						n.Class = attr.Value
					case "bounds":
						n.Bounds = parseBounds(attr.Value)
					case "enabled":
						n.Enabled = attr.Value == "true"
					case "displayed":
						n.Displayed = attr.Value != "false"
					case "clickable":
						n.Clickable = attr.Value == "true"
					}
				}

				for {
					child, err := parseNode(depth + 1)
					if err != nil {
						return nil, err
					}
					if child == nil {
						break
					}
					n.Children = append(n.Children, child)
				}
				return n, nil

			case xml.EndElement:
				return nil, nil
			}
		}
	}

	for {
		n, err := parseNode(0)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse page source: %w", err)
		}
		if n != nil {
			nodes = append(nodes, flatten(n)...)
		}
	}

	if !foundHierarchy {
		return nil, errors.New("invalid page source: no hierarchy element found")
	}
	return nodes, nil
}

func flatten(n *Node) []*Node {
	result := []*Node{n}
	for _, child := range n.Children {
		result = append(result, flatten(child)...)
	}
	return result
}

// parseBounds parses "[x1,y1][x2,y2]".
func parseBounds(s string) Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Bounds{}
		}
		v[i] = n
	}
	return Bounds{X: v[0], Y: v[1], Width: v[2] - v[0], Height: v[3] - v[1]}
}

// WriteCSV writes the labeled nodes as CSV, one row per node.
func WriteCSV(w io.Writer, nodes []*Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"depth", "class", "resource-id", "text", "content-desc", "clickable", "bounds"}); err != nil {
		return err
	}
	for _, n := range nodes {
		if !n.Labeled() {
			continue
		}
		b := n.Bounds
		row := []string{
			strconv.Itoa(n.Depth),
			n.Class,
			n.ResourceID,
			n.Text,
			n.ContentDesc,
			strconv.FormatBool(n.Clickable),
			fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.X+b.Width, b.Y+b.Height),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
