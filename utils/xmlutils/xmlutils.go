/*
 * Copyright 2024 The OpenLEGO Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package xmlutils implements the XML document plumbing every discipline
// exchange goes through: flattening a document into (xpath, value) pairs,
// creating elements at arbitrary paths, merging documents, and encoding
// scalar/vector values in element text.
//
// An xpath here is the element's full path from the root, with a 1-based
// positional index for elements that have same-named siblings, e.g.
// /aircraft/wing[2]/span. Vector values are semicolon-separated floats.
package xmlutils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Entry is one leaf element of a flattened XML document.
type Entry struct {
	XPath string
	Value interface{}
}

// NewDocument creates a document with an XML declaration and the given root.
func NewDocument(rootTag string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateElement(rootTag)
	return doc
}

// LoadFile reads an XML document from a file.
func LoadFile(path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("no root element in %s", path)
	}
	return doc, nil
}

// LoadBytes reads an XML document from a byte slice.
func LoadBytes(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("no root element")
	}
	return doc, nil
}

// DocBytes serializes the document indented.
func DocBytes(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	return doc.WriteToBytes()
}

// WriteFile serializes the document indented to a file.
func WriteFile(doc *etree.Document, path string) error {
	doc.Indent(2)
	return doc.WriteToFile(path)
}

// XMLToDict flattens the document into its leaf entries in document order.
func XMLToDict(doc *etree.Document) []Entry {
	var entries []Entry
	root := doc.Root()
	if root == nil {
		return entries
	}
	collectEntries(root, "/"+root.Tag, &entries)
	return entries
}

// FileToDict flattens an XML file into its leaf entries.
func FileToDict(path string) ([]Entry, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return XMLToDict(doc), nil
}

// BytesToDict flattens an XML byte slice into its leaf entries.
func BytesToDict(data []byte) ([]Entry, error) {
	doc, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return XMLToDict(doc), nil
}

func collectEntries(el *etree.Element, xpath string, entries *[]Entry) {
	children := el.ChildElements()
	if len(children) == 0 {
		*entries = append(*entries, Entry{XPath: xpath, Value: ParseValue(strings.TrimSpace(el.Text()))})
		return
	}
	// per-tag occurrence counters, index only when a tag repeats
	counts := make(map[string]int)
	for _, child := range children {
		counts[child.Tag]++
	}
	seen := make(map[string]int)
	for _, child := range children {
		seen[child.Tag]++
		childPath := xpath + "/" + child.Tag
		if counts[child.Tag] > 1 {
			childPath += "[" + strconv.Itoa(seen[child.Tag]) + "]"
		}
		collectEntries(child, childPath, entries)
	}
}

// XPathToParam converts an element xpath to a flat parameter identifier
// usable as a host-framework variable name. Path segments and positional
// indices are joined with ':', e.g. /aircraft/wing[2]/span -> aircraft:wing:2:span.
func XPathToParam(xpath string) string {
	segments := strings.Split(strings.TrimPrefix(xpath, "/"), "/")
	var tokens []string
	for _, segment := range segments {
		if i := strings.IndexByte(segment, '['); i >= 0 {
			tokens = append(tokens, segment[:i], strings.TrimSuffix(segment[i+1:], "]"))
		} else {
			tokens = append(tokens, segment)
		}
	}
	return strings.Join(tokens, ":")
}

// ParamToXPath inverts XPathToParam. A purely numeric token is a positional
// index of the preceding segment; this is unambiguous because XML element
// names cannot consist of digits only.
func ParamToXPath(param string) string {
	tokens := strings.Split(param, ":")
	var builder strings.Builder
	for _, token := range tokens {
		if token != "" && isDigits(token) {
			builder.WriteString("[" + token + "]")
		} else {
			builder.WriteString("/" + token)
		}
	}
	return builder.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseValue decodes element text into a float64, a []float64 (semicolon
// separated) or, failing both, the raw string. "nan" parses to a NaN float,
// which downstream treats as a discrete placeholder.
func ParseValue(text string) interface{} {
	if text == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	if strings.Contains(text, ";") {
		parts := strings.Split(text, ";")
		vector := make([]float64, 0, len(parts))
		for _, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return text
			}
			vector = append(vector, v)
		}
		return vector
	}
	return text
}

// FormatValue encodes a value into element text, inverse of ParseValue.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprintf("%v", value)
	}
}

// IsDiscrete reports whether a template value must be declared as a discrete
// variable: anything that is not a finite float or float vector.
func IsDiscrete(value interface{}) bool {
	switch v := value.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// SafeCreateElement creates the element at xpath, creating missing ancestors
// and missing same-named siblings for indexed segments, and sets its value.
// The root segment must match the document root.
func SafeCreateElement(doc *etree.Document, xpath string, value interface{}) error {
	segments := strings.Split(strings.TrimPrefix(xpath, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return fmt.Errorf("invalid xpath %q", xpath)
	}
	rootTag, rootIndex, err := splitSegment(segments[0])
	if err != nil || rootIndex > 1 {
		return fmt.Errorf("invalid root segment in xpath %q", xpath)
	}
	root := doc.Root()
	if root == nil {
		root = doc.CreateElement(rootTag)
	} else if root.Tag != rootTag {
		return fmt.Errorf("xpath root %q does not match document root %q", rootTag, root.Tag)
	}
	el := root
	for _, segment := range segments[1:] {
		tag, index, err := splitSegment(segment)
		if err != nil {
			return fmt.Errorf("invalid segment %q in xpath %q", segment, xpath)
		}
		siblings := el.SelectElements(tag)
		for len(siblings) < index {
			siblings = append(siblings, el.CreateElement(tag))
		}
		el = siblings[index-1]
	}
	el.SetText(FormatValue(value))
	return nil
}

func splitSegment(segment string) (tag string, index int, err error) {
	index = 1
	tag = segment
	if i := strings.IndexByte(segment, '['); i >= 0 {
		tag = segment[:i]
		index, err = strconv.Atoi(strings.TrimSuffix(segment[i+1:], "]"))
		if err == nil && index < 1 {
			err = fmt.Errorf("index out of range: %d", index)
		}
	}
	if tag == "" {
		err = fmt.Errorf("empty tag")
	}
	return tag, index, err
}

// MergeDocs merges the leaves of src into dst: existing elements get their
// text updated, missing ones are created.
func MergeDocs(dst, src *etree.Document) error {
	if src.Root() == nil {
		return nil
	}
	if dst.Root() == nil {
		dst.SetRoot(src.Root().Copy())
		return nil
	}
	if dst.Root().Tag != src.Root().Tag {
		return fmt.Errorf("cannot merge %q into %q", src.Root().Tag, dst.Root().Tag)
	}
	mergeElement(dst.Root(), src.Root())
	return nil
}

func mergeElement(dst, src *etree.Element) {
	children := src.ChildElements()
	if len(children) == 0 {
		if text := strings.TrimSpace(src.Text()); text != "" {
			dst.SetText(text)
		}
		return
	}
	seen := make(map[string]int)
	for _, child := range children {
		seen[child.Tag]++
		siblings := dst.SelectElements(child.Tag)
		if len(siblings) < seen[child.Tag] {
			dst.AddChild(child.Copy())
		} else {
			mergeElement(siblings[seen[child.Tag]-1], child)
		}
	}
}

// Merge merges the document in mergeFile into baseFile and rewrites baseFile.
func Merge(baseFile, mergeFile string) error {
	return MergeInto(baseFile, mergeFile, baseFile)
}

// MergeInto merges the document in mergeFile into the one in baseFile and
// writes the result to outFile.
func MergeInto(baseFile, mergeFile, outFile string) error {
	base, err := LoadFile(baseFile)
	if err != nil {
		return err
	}
	merge, err := LoadFile(mergeFile)
	if err != nil {
		return err
	}
	if err := MergeDocs(base, merge); err != nil {
		return err
	}
	return WriteFile(base, outFile)
}
