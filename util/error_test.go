// Copyright 2023 - 2025 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a", Indent(2, "a"))
	assert.Equal(t, "  a\n  b", Indent(2, "a\nb"))
}

func TestIndentExceptFirstLine(t *testing.T) {
	assert.Equal(t, "a", IndentExceptFirstLine(2, "a"))
	assert.Equal(t, "a\n  b", IndentExceptFirstLine(2, "a\nb"))
}
