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

// Package base provides shared behavior for the built-in disciplines.
package base

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openlego/openlego/partials"
	"github.com/openlego/openlego/utils/xmlutils"
)

// BlackBox provides the defaults of a discipline that is a black box:
// no declared sensitivities, Linearize writes an empty partials document.
// Disciplines embed it and override what they support.
type BlackBox struct {
}

// GeneratePartialsXML returns an empty partials document.
func (b *BlackBox) GeneratePartialsXML() ([]byte, error) {
	return partials.New().Bytes()
}

// SuppliesPartials reports false; the host falls back to finite differencing.
func (b *BlackBox) SuppliesPartials() bool {
	return false
}

// Linearize writes an empty partials document.
func (b *BlackBox) Linearize(_ string, partialsFile string) error {
	return partials.New().WriteFile(partialsFile)
}

// Destroy releases nothing.
func (b *BlackBox) Destroy() {
}

// BuildTemplate builds a template XML document from xpath -> default value
// pairs, sorted by xpath for a stable document. All xpaths must share the
// same root segment.
func BuildTemplate(values map[string]interface{}) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no template values")
	}
	xpaths := make([]string, 0, len(values))
	for xpath := range values {
		xpaths = append(xpaths, xpath)
	}
	sort.Strings(xpaths)

	rootTag := rootSegment(xpaths[0])
	for _, xpath := range xpaths[1:] {
		if rootSegment(xpath) != rootTag {
			return nil, fmt.Errorf("template xpaths mix roots %q and %q", rootTag, rootSegment(xpath))
		}
	}
	doc := xmlutils.NewDocument(rootTag)
	for _, xpath := range xpaths {
		if err := xmlutils.SafeCreateElement(doc, xpath, values[xpath]); err != nil {
			return nil, err
		}
	}
	return xmlutils.DocBytes(doc)
}

func rootSegment(xpath string) string {
	trimmed := strings.TrimPrefix(xpath, "/")
	if i := strings.IndexAny(trimmed, "/["); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
