package binary

import (
	"github.com/merl-lang/merl/internal/leb128"
	"github.com/merl-lang/merl/internal/wasm"
)

// Name subsection IDs of the extended name section.
//
// See https://webassembly.github.io/extended-name-section/core/appendix/custom.html
const (
	subsectionIDFunctionNames = 1
	subsectionIDLocalNames    = 2
	subsectionIDTypeNames     = 4
	subsectionIDGlobalNames   = 7
)

type nameAssoc struct {
	index wasm.Index
	name  string
}

// encodeNameSection encodes the custom "name" section carrying function,
// local, type and global names, including the entries for the synthesised
// start function.
func encodeNameSection(types []*wasm.Type, functions []*wasm.Function, globals []*wasm.Global,
	startTypeIndex, startFunctionIndex wasm.Index) []byte {
	contents := encodeSizePrefixed([]byte("name"))
	contents = append(contents, encodeFunctionNames(functions, startFunctionIndex)...)
	contents = append(contents, encodeLocalNames(functions, startFunctionIndex)...)
	contents = append(contents, encodeTypeNames(types, startTypeIndex)...)
	contents = append(contents, encodeGlobalNames(globals)...)
	return encodeSection(wasm.SectionIDCustom, contents)
}

func encodeFunctionNames(functions []*wasm.Function, startFunctionIndex wasm.Index) []byte {
	namemap := make([]nameAssoc, 0, len(functions)+1)
	for _, f := range functions {
		namemap = append(namemap, nameAssoc{index: f.FunctionIndex, name: f.Name})
	}
	namemap = append(namemap, nameAssoc{index: startFunctionIndex, name: startFunctionName})
	return encodeNameSubsection(subsectionIDFunctionNames, encodeNameMap(namemap))
}

// encodeLocalNames encodes the indirect name map of each function's locals:
// named arguments first in declared order, then the body locals keyed by
// their final index.
func encodeLocalNames(functions []*wasm.Function, startFunctionIndex wasm.Index) []byte {
	contents := leb128.EncodeUint32(uint32(len(functions)) + 1)
	for _, f := range functions {
		var namemap []nameAssoc
		for i, name := range f.ArgumentNames {
			if name == "" {
				continue
			}
			namemap = append(namemap, nameAssoc{index: wasm.Index(i), name: name})
		}
		for i, l := range f.Locals {
			namemap = append(namemap, nameAssoc{index: wasm.Index(i + len(f.ArgumentNames)), name: l.Name})
		}
		contents = append(contents, leb128.EncodeUint32(f.FunctionIndex)...)
		contents = append(contents, encodeNameMap(namemap)...)
	}
	// The start function has no locals, but gets an (empty) entry.
	contents = append(contents, leb128.EncodeUint32(startFunctionIndex)...)
	contents = append(contents, encodeNameMap(nil)...)
	return encodeNameSubsection(subsectionIDLocalNames, contents)
}

func encodeTypeNames(types []*wasm.Type, startTypeIndex wasm.Index) []byte {
	namemap := make([]nameAssoc, 0, len(types)+1)
	for _, t := range types {
		namemap = append(namemap, nameAssoc{index: t.ID, name: t.Name})
	}
	namemap = append(namemap, nameAssoc{index: startTypeIndex, name: startTypeName})
	return encodeNameSubsection(subsectionIDTypeNames, encodeNameMap(namemap))
}

func encodeGlobalNames(globals []*wasm.Global) []byte {
	namemap := make([]nameAssoc, 0, len(globals))
	for _, g := range globals {
		namemap = append(namemap, nameAssoc{index: g.GlobalIndex, name: g.Name})
	}
	return encodeNameSubsection(subsectionIDGlobalNames, encodeNameMap(namemap))
}

func encodeNameSubsection(subsectionID byte, contents []byte) []byte {
	return append([]byte{subsectionID}, encodeSizePrefixed(contents)...)
}

func encodeNameMap(namemap []nameAssoc) []byte {
	contents := leb128.EncodeUint32(uint32(len(namemap)))
	for _, na := range namemap {
		contents = append(contents, encodeNameAssoc(na)...)
	}
	return contents
}

func encodeNameAssoc(na nameAssoc) []byte {
	return append(leb128.EncodeUint32(na.index), encodeSizePrefixed([]byte(na.name))...)
}
