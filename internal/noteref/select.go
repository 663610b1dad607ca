package noteref

import (
	"errors"
	"fmt"

	"github.com/starford/noteweave/internal/block"
	"github.com/starford/noteweave/internal/link"
	"github.com/starford/noteweave/internal/parser"
)

// ErrAnchorNotFound is returned when a reference names an anchor the target
// note does not have.
var ErrAnchorNotFound = errors.New("anchor not found")

// Select cuts the part of body a reference range asks for:
//
//	no anchor or *     whole body
//	#a                 from a's block to the end of the body
//	#a,N               a's block and the N blocks after it
//	#a:#b              a's block through b's block
//	#a,N:#b            the block N after a through b's block
//
// Blocks are counted in block.Extract order.
func Select(body string, r *link.RefRange) (string, error) {
	if r == nil || (isWhole(r.AnchorStart) && r.AnchorEnd == "") {
		return body, nil
	}

	blocks := block.FromNote(body)
	if len(blocks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrAnchorNotFound, r.AnchorStart)
	}

	first := 0
	if !isWhole(r.AnchorStart) {
		first = block.Locate(blocks, r.AnchorStart)
		if first < 0 {
			return "", fmt.Errorf("%w: %s", ErrAnchorNotFound, r.AnchorStart)
		}
	}
	if r.HasOffset && r.AnchorEnd != "" {
		first = min(first+r.Offset, len(blocks)-1)
	}

	var last int
	switch {
	case r.AnchorEnd != "":
		last = block.Locate(blocks, r.AnchorEnd)
		if last < 0 {
			return "", fmt.Errorf("%w: %s", ErrAnchorNotFound, r.AnchorEnd)
		}
		last = max(last, first)
	case r.HasOffset:
		last = min(first+r.Offset, len(blocks)-1)
	default:
		return body[blocks[first].Start:], nil
	}

	start, end := blocks[first].Start, blocks[first].End
	for _, b := range blocks[first : last+1] {
		start = min(start, b.Start)
		end = max(end, b.End)
	}
	return body[start:end], nil
}

func isWhole(anchor string) bool {
	return anchor == "" || anchor == parser.Wildcard
}
