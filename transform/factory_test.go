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

import (
	"testing"

	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
)

// "DNA" is a parse-only alias for PackType: it names the PACK+DNA
// combination's intent in a plan string without its own wire slot, so
// GetName never produces it back (plans always read back as "PACK").
func TestFactoryDNAAliasParsesAsPack(t *testing.T) {
	plan, err := GetType("DNA")
	require.NoError(t, err)

	packPlan, err := GetType("PACK")
	require.NoError(t, err)
	require.Equal(t, packPlan, plan)

	name, err := GetName(plan)
	require.NoError(t, err)
	require.Equal(t, "PACK", name)
}

func TestFactoryNameTypeRoundtrip(t *testing.T) {
	names := []string{
		"NONE", "BWT", "BWTS", "LZ", "LZX", "LZP", "RLT", "ZRLT",
		"MTFT", "RANK", "EXE", "TEXT", "ROLZ", "ROLZX", "SRT", "MM",
		"UTF", "PACK",
		"TEXT+BWT+MTFT+ZRLT",
		"PACK+BWT+SRT",
	}

	for _, name := range names {
		plan, err := GetType(name)
		require.NoError(t, err, name)

		back, err := GetName(plan)
		require.NoError(t, err, name)
		require.Equal(t, name, back)
	}
}

func TestFactoryNewBuildsWorkingSequence(t *testing.T) {
	plan, err := GetType("RLT+ZRLT")
	require.NoError(t, err)

	seq, err := New(&kc.Context{}, plan)
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())
}

func TestFactoryUnknownNameErrors(t *testing.T) {
	_, err := GetType("NOTAREALTRANSFORM")
	require.Error(t, err)
}

func TestFactoryUnknownTypeErrors(t *testing.T) {
	_, err := GetName(uint64(63) << 42)
	require.Error(t, err)
}

func TestFactoryTooManyTransformsErrors(t *testing.T) {
	name := "RLT+RLT+RLT+RLT+RLT+RLT+RLT+RLT+RLT"
	_, err := GetType(name)
	require.Error(t, err)
}

func TestFactoryNoneTypeBuildsNullTransform(t *testing.T) {
	seq, err := New(&kc.Context{}, NoneType)
	require.NoError(t, err)
	require.Equal(t, 1, seq.Len())

	in := []byte("pass through untouched")
	roundtrip(t, seq, in)
}
