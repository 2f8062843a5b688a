// SPDX-License-Identifier: MIT

package ellipse

import (
	"fmt"
	"strings"
)

// Coord identifies one coordinate of a quadratic form. Forms keep an explicit
// list of live coordinates, so removing or integrating one never renumbers
// the others.
type Coord int

const (
	// QPara is the momentum transfer along Q.
	QPara Coord = iota
	// QPerp is the in-plane momentum transfer perpendicular to Q.
	QPerp
	// QUp is the out-of-plane momentum transfer.
	QUp
	// E is the energy transfer.
	E
	// Aux1 and Aux2 are auxiliary (unmeasured) solver coordinates.
	Aux1
	Aux2
)

// Physical lists the four measured coordinates in result order.
var Physical = []Coord{QPara, QPerp, QUp, E}

var coordNames = [...]string{"Q_para", "Q_perp", "Q_up", "E", "aux1", "aux2"}

// String returns the short name.
func (c Coord) String() string {
	if c < 0 || int(c) >= len(coordNames) {
		return fmt.Sprintf("Coord(%d)", int(c))
	}

	return coordNames[c]
}

// Label returns a human-readable axis label with units.
func (c Coord) Label() string {
	switch c {
	case QPara, QPerp, QUp:
		return c.String() + " (1/A)"
	case E:
		return "E (meV)"
	default:
		return c.String()
	}
}

// ParseCoord accepts the short names and common aliases (qx, qy, qz, energy).
func ParseCoord(s string) (Coord, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q_para", "qpara", "qx":
		return QPara, nil
	case "q_perp", "qperp", "qy":
		return QPerp, nil
	case "q_up", "qup", "qz":
		return QUp, nil
	case "e", "energy":
		return E, nil
	case "aux1":
		return Aux1, nil
	case "aux2":
		return Aux2, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCoord, s)
}

// ParseCoords parses a list, skipping empty entries.
func ParseCoords(ss []string) ([]Coord, error) {
	out := make([]Coord, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		c, err := ParseCoord(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, nil
}
