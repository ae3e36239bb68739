/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transform

import kc "github.com/corewave-labs/kanzicore"

// NullTransform is an identity transform: forward and inverse are both
// a plain copy. It is the plan's implicit terminator (transform ID 0)
// and is also usable standalone as a pass-through.
type NullTransform struct{}

// NewNullTransform creates a new NullTransform.
func NewNullTransform() (*NullTransform, error) {
	return &NullTransform{}, nil
}

// NewNullTransformWithCtx creates a new NullTransform; the context is
// unused, the signature exists to satisfy the factory's uniform
// constructor shape.
func NewNullTransformWithCtx(_ *kc.Context) (*NullTransform, error) {
	return &NullTransform{}, nil
}

// Forward copies src to dst.
func (t *NullTransform) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	if dst.Length < src.Length {
		return false, nil
	}

	copy(dst.Buf[dst.Index:], src.Bytes())
	dst.Index += src.Length
	src.Index += src.Length
	return true, nil
}

// Inverse copies src to dst.
func (t *NullTransform) Inverse(src, dst *kc.Slice) (bool, error) {
	return t.Forward(src, dst)
}

// MaxEncodedLen returns srcLen: the null transform never grows its input.
func (t *NullTransform) MaxEncodedLen(srcLen int) int {
	return srcLen
}
