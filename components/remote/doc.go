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

// Package remote implements disciplines whose analysis tool runs somewhere
// else: behind an OpenLEGO discipline server (restCall), on a remote host
// reachable over SSH (ssh), or behind an MQTT broker with a request/reply
// topic pair (mqttCall). In all three the exchange stays XML documents; only
// the transport differs.
package remote

import (
	"github.com/openlego/openlego/api/types"
)

// Registry holds the disciplines of this package, registered during package
// initialization.
var Registry = new(types.SafeDisciplineSlice)
