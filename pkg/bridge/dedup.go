// Copyright 2025 VeloxVoIP
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduper is a bounded window of recently seen webhook event ids. Providers
// only redeliver within a short horizon, so evicting the oldest entries once
// the window fills is enough; dedup coverage for very old events is traded
// for bounded memory.
type Deduper struct {
	seen *lru.Cache[string, struct{}]
}

func NewDeduper(size int) *Deduper {
	if size <= 0 {
		size = 5000
	}
	// error only fires for non-positive sizes
	cache, _ := lru.New[string, struct{}](size)
	return &Deduper{seen: cache}
}

// Seen records the id and reports whether it was already in the window.
// Events without an id are never duplicates.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}
	present, _ := d.seen.ContainsOrAdd(id, struct{}{})
	return present
}
