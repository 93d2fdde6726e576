/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"github.com/CrazyForks/garlic/internal/binio"
)

// CatchHandler is one (exception type, handler address) pair within an
// encoded_catch_handler.
type CatchHandler struct {
	TypeIdx uint32 // type id of the caught exception
	Addr    uint32 // code-unit offset of the handler
}

// HandlerList is one encoded_catch_handler: zero or more typed handlers
// plus an optional catch-all handler (no declared type).
type HandlerList struct {
	Handlers     []CatchHandler
	CatchAllAddr uint32 // 0 if HasCatchAll is false
	HasCatchAll  bool
}

// TryItem is one try_item: the code-unit range it covers and the byte
// offset (relative to the start of the handler-list section) of the
// HandlerList that covers it.
type TryItem struct {
	StartAddr uint32 // first code unit covered
	InsnCount uint16 // number of 16-bit code units covered
	HandlerOff uint16
}

// CodeItem mirrors spec.md §3's CodeItem: per-method register/ins/outs
// counts, the raw 16-bit instruction buffer, and the try/catch handler
// table. DebugInfoOff is preserved for diagnostics but this decompiler
// does not interpret the debug_info_item state machine -- line-number
// recovery is not part of the lifting pipeline's scope.
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	TriesSize     uint16
	DebugInfoOff  uint32

	Insns []uint16 // raw 16-bit code units, in file order

	Tries    []TryItem
	Handlers []HandlerList

	// handlerByOffset maps a try_item.HandlerOff (a byte offset relative
	// to the start of the encoded_catch_handler_list) to its decoded
	// HandlerList. Distinct try items are permitted to share one handler
	// list by pointing at the same offset.
	handlerByOffset map[uint16]int
}

// HandlerFor resolves the HandlerList a TryItem points to.
func (ci *CodeItem) HandlerFor(t TryItem) (HandlerList, bool) {
	idx, ok := ci.handlerByOffset[t.HandlerOff]
	if !ok {
		return HandlerList{}, false
	}
	return ci.Handlers[idx], true
}

// parseCodeItem decodes the code_item at offset off in the DEX file's
// raw bytes.
func parseCodeItem(raw []byte, off uint32) (*CodeItem, error) {
	r := binio.New(raw)
	if err := r.Seek(int(off)); err != nil {
		return nil, err
	}

	ci := &CodeItem{}
	v, err := r.ReadU16LE()
	if err != nil {
		return nil, err
	}
	ci.RegistersSize = v
	if v, err = r.ReadU16LE(); err != nil {
		return nil, err
	}
	ci.InsSize = v
	if v, err = r.ReadU16LE(); err != nil {
		return nil, err
	}
	ci.OutsSize = v
	if v, err = r.ReadU16LE(); err != nil {
		return nil, err
	}
	ci.TriesSize = v
	if ci.DebugInfoOff, err = r.ReadU32LE(); err != nil {
		return nil, err
	}
	insnsSize, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	ci.Insns = make([]uint16, insnsSize)
	for i := uint32(0); i < insnsSize; i++ {
		u, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		ci.Insns[i] = u
	}

	if ci.TriesSize == 0 {
		return ci, nil
	}

	// The tries array is 4-byte aligned; a 2-byte pad precedes it when
	// insns_size is odd.
	if insnsSize%2 == 1 {
		if _, err := r.ReadU16LE(); err != nil {
			return nil, err
		}
	}

	ci.Tries = make([]TryItem, ci.TriesSize)
	for i := uint16(0); i < ci.TriesSize; i++ {
		start, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		count, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		handlerOff, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		ci.Tries[i] = TryItem{StartAddr: start, InsnCount: count, HandlerOff: handlerOff}
	}

	handlerListBase := r.Pos()
	listCount, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}
	ci.Handlers = make([]HandlerList, listCount)
	ci.handlerByOffset = make(map[uint16]int, listCount)
	for i := uint64(0); i < listCount; i++ {
		relOff := uint16(r.Pos() - handlerListBase)
		hl, err := parseHandlerList(r)
		if err != nil {
			return nil, err
		}
		ci.Handlers[i] = hl
		ci.handlerByOffset[relOff] = int(i)
	}

	return ci, nil
}

func parseHandlerList(r *binio.Reader) (HandlerList, error) {
	size, err := r.ReadSLEB128()
	if err != nil {
		return HandlerList{}, err
	}
	count := size
	hasCatchAll := size <= 0
	if hasCatchAll {
		count = -size
	}
	hl := HandlerList{Handlers: make([]CatchHandler, count), HasCatchAll: hasCatchAll}
	for i := int64(0); i < count; i++ {
		typeIdx, err := r.ReadULEB128()
		if err != nil {
			return HandlerList{}, err
		}
		addr, err := r.ReadULEB128()
		if err != nil {
			return HandlerList{}, err
		}
		hl.Handlers[i] = CatchHandler{TypeIdx: uint32(typeIdx), Addr: uint32(addr)}
	}
	if hasCatchAll {
		addr, err := r.ReadULEB128()
		if err != nil {
			return HandlerList{}, err
		}
		hl.CatchAllAddr = uint32(addr)
	}
	return hl, nil
}
