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

// Package partials implements the sensitivities XML document disciplines use
// to declare and exchange partial derivatives. The document nests one
// `partial` element per output, each holding `wrt` entries:
//
//	<partials>
//	  <partial>
//	    <of>/aircraft/performance/R</of>
//	    <wrt>
//	      <param>/aircraft/aero/L</param>
//	      <value>0.35</value>
//	    </wrt>
//	  </partial>
//	</partials>
//
// Paths follow the same xpath convention as the in/output documents. A
// discipline that supplies no sensitivities writes an empty <partials/>
// document.
package partials

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/openlego/openlego/utils/xmlutils"
)

const (
	rootTag  = "partials"
	ofTag    = "of"
	wrtTag   = "wrt"
	paramTag = "param"
	valueTag = "value"
)

// Pair is one declared (of, wrt) sensitivity pair.
type Pair struct {
	Of  string
	Wrt string
}

// Partials stores declared sensitivities as of -> wrt -> value, keeping
// declaration order for a stable wire format.
type Partials struct {
	values   map[string]map[string]float64
	ofOrder  []string
	wrtOrder map[string][]string
}

// New creates an empty Partials store.
func New() *Partials {
	return &Partials{
		values:   make(map[string]map[string]float64),
		wrtOrder: make(map[string][]string),
	}
}

// Parse decodes a partials XML document.
func Parse(data []byte) (*Partials, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return fromDoc(doc)
}

// ReadFile decodes a partials XML file.
func ReadFile(path string) (*Partials, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, err
	}
	return fromDoc(doc)
}

func fromDoc(doc *etree.Document) (*Partials, error) {
	p := New()
	root := doc.Root()
	if root == nil {
		return p, nil
	}
	if root.Tag != rootTag {
		return nil, fmt.Errorf("unexpected root element %q, want %q", root.Tag, rootTag)
	}
	for _, partial := range root.SelectElements("partial") {
		ofEl := partial.SelectElement(ofTag)
		if ofEl == nil {
			return nil, fmt.Errorf("partial element without <of>")
		}
		of := strings.TrimSpace(ofEl.Text())
		for _, wrt := range partial.SelectElements(wrtTag) {
			paramEl := wrt.SelectElement(paramTag)
			valueEl := wrt.SelectElement(valueTag)
			if paramEl == nil || valueEl == nil {
				return nil, fmt.Errorf("wrt element of %q without <param> or <value>", of)
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(valueEl.Text()), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for (%s, %s): %v", of, paramEl.Text(), err)
			}
			p.Declare(of, strings.TrimSpace(paramEl.Text()), value)
		}
	}
	return p, nil
}

// Declare adds the sensitivity of output `of` with respect to input `wrt`.
// A duplicate declaration overwrites the previous value.
func (p *Partials) Declare(of, wrt string, value float64) {
	if _, ok := p.values[of]; !ok {
		p.values[of] = make(map[string]float64)
		p.ofOrder = append(p.ofOrder, of)
	}
	if _, ok := p.values[of][wrt]; !ok {
		p.wrtOrder[of] = append(p.wrtOrder[of], wrt)
	}
	p.values[of][wrt] = value
}

// Get returns the declared sensitivities as of -> wrt -> value.
func (p *Partials) Get() map[string]map[string]float64 {
	return p.values
}

// Value returns the declared value for an (of, wrt) pair.
func (p *Partials) Value(of, wrt string) (float64, bool) {
	wrts, ok := p.values[of]
	if !ok {
		return 0, false
	}
	v, ok := wrts[wrt]
	return v, ok
}

// Pairs returns the declared (of, wrt) pairs in declaration order.
func (p *Partials) Pairs() []Pair {
	var pairs []Pair
	for _, of := range p.ofOrder {
		for _, wrt := range p.wrtOrder[of] {
			pairs = append(pairs, Pair{Of: of, Wrt: wrt})
		}
	}
	return pairs
}

// IsEmpty reports whether nothing was declared.
func (p *Partials) IsEmpty() bool {
	return len(p.ofOrder) == 0
}

func (p *Partials) toDoc() *etree.Document {
	doc := xmlutils.NewDocument(rootTag)
	root := doc.Root()
	for _, of := range p.ofOrder {
		partial := root.CreateElement("partial")
		partial.CreateElement(ofTag).SetText(of)
		for _, wrt := range p.wrtOrder[of] {
			wrtEl := partial.CreateElement(wrtTag)
			wrtEl.CreateElement(paramTag).SetText(wrt)
			wrtEl.CreateElement(valueTag).SetText(xmlutils.FormatValue(p.values[of][wrt]))
		}
	}
	return doc
}

// Bytes encodes the store to its XML document.
func (p *Partials) Bytes() ([]byte, error) {
	return xmlutils.DocBytes(p.toDoc())
}

// WriteFile encodes the store to an XML file.
func (p *Partials) WriteFile(path string) error {
	return xmlutils.WriteFile(p.toDoc(), path)
}
