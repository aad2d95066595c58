//
//
package mission

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ground-control/gcs/internal/wire"
)

// frameGlobalRelativeAlt is the default coordinate frame for file-loaded
// waypoints.
const frameGlobalRelativeAlt = 3

// Waypoint is one mission item as stored in a mission file. Seq is the
// item's position within the mission it belongs to; OriginalSeq is its
// index in the originally loaded mission and survives resume
// re-sequencing, so reached reports can be resolved back to the
// original plan.
type Waypoint struct {
	Seq          int
	OriginalSeq  int
	Frame        int
	Command      int
	Current      int
	Autocontinue int
	Param1       float64
	Param2       float64
	Param3       float64
	Param4       float64
	Lat          float64
	Lon          float64
	Alt          float64
}

// Item converts the waypoint to the float wire variant at sequence seq.
func (w Waypoint) Item(seq int) wire.MissionItem {
	return wire.MissionItem{
		Seq:          seq,
		Frame:        uint8(w.Frame),
		Command:      uint16(w.Command),
		Current:      uint8(w.Current),
		Autocontinue: uint8(w.Autocontinue),
		Param1:       float32(w.Param1),
		Param2:       float32(w.Param2),
		Param3:       float32(w.Param3),
		Param4:       float32(w.Param4),
		Lat:          w.Lat,
		Lon:          w.Lon,
		Alt:          w.Alt,
	}
}

// ItemInt converts the waypoint to the scaled-int wire variant at
// sequence seq.
func (w Waypoint) ItemInt(seq int) wire.MissionItemInt {
	return wire.MissionItemInt{
		Seq:          seq,
		Frame:        uint8(w.Frame),
		Command:      uint16(w.Command),
		Current:      uint8(w.Current),
		Autocontinue: uint8(w.Autocontinue),
		Param1:       float32(w.Param1),
		Param2:       float32(w.Param2),
		Param3:       float32(w.Param3),
		Param4:       float32(w.Param4),
		LatE7:        int32(w.Lat * 1e7),
		LonE7:        int32(w.Lon * 1e7),
		Alt:          w.Alt,
	}
}

// ParseFile loads waypoints from a mission file. Tab-separated QGC WPL 110
// files (.waypoints) and QGroundControl JSON plans (.mission) are
// supported. Malformed waypoint lines are skipped and logged; only an
// unreadable file is an error.
func ParseFile(path string, log *slog.Logger) ([]Waypoint, error) {
	if strings.HasSuffix(path, ".mission") {
		return parsePlanJSON(path)
	}
	return parseWPL(path, log)
}

func parseWPL(path string, log *slog.Logger) ([]Waypoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mission file: %w", err)
	}
	defer f.Close()

	var waypoints []Waypoint
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if lineNo == 1 && strings.HasPrefix(line, "QGC") {
			log.Debug("mission file header", "header", line)
			continue
		}

		wp, err := parseWPLLine(line)
		if err != nil {
			log.Warn("skipping malformed waypoint line", "line", lineNo, "error", err)
			continue
		}
		waypoints = append(waypoints, wp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mission file: %w", err)
	}

	log.Debug("parsed mission file", "path", path, "waypoints", len(waypoints))
	return waypoints, nil
}

// parseWPLLine parses one waypoint row:
// seq current frame command param1 param2 param3 param4 lat lon alt autocontinue
func parseWPLLine(line string) (Waypoint, error) {
	parts := strings.Split(line, "\t")
	if len(parts) < 12 {
		return Waypoint{}, fmt.Errorf("expected 12 fields, got %d", len(parts))
	}

	ints := make([]int, 4)
	for i, idx := range []int{0, 1, 2, 3} {
		v, err := strconv.Atoi(strings.TrimSpace(parts[idx]))
		if err != nil {
			return Waypoint{}, fmt.Errorf("field %d: %w", idx, err)
		}
		ints[i] = v
	}
	floats := make([]float64, 7)
	for i, idx := range []int{4, 5, 6, 7, 8, 9, 10} {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[idx]), 64)
		if err != nil {
			return Waypoint{}, fmt.Errorf("field %d: %w", idx, err)
		}
		floats[i] = v
	}
	autocontinue, err := strconv.Atoi(strings.TrimSpace(parts[11]))
	if err != nil {
		return Waypoint{}, fmt.Errorf("field 11: %w", err)
	}

	return Waypoint{
		Seq:          ints[0],
		OriginalSeq:  ints[0],
		Current:      ints[1],
		Frame:        ints[2],
		Command:      ints[3],
		Param1:       floats[0],
		Param2:       floats[1],
		Param3:       floats[2],
		Param4:       floats[3],
		Lat:          floats[4],
		Lon:          floats[5],
		Alt:          floats[6],
		Autocontinue: autocontinue,
	}, nil
}

// parsePlanJSON reads the QGroundControl plan format, keeping only simple
// navigation items.
func parsePlanJSON(path string) ([]Waypoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open mission file: %w", err)
	}

	var plan struct {
		Mission struct {
			Items []struct {
				Type       string    `json:"type"`
				Command    int       `json:"command"`
				Param1     float64   `json:"param1"`
				Param2     float64   `json:"param2"`
				Param3     float64   `json:"param3"`
				Param4     float64   `json:"param4"`
				Coordinate []float64 `json:"coordinate"`
			} `json:"items"`
		} `json:"mission"`
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse mission plan: %w", err)
	}

	var waypoints []Waypoint
	for _, item := range plan.Mission.Items {
		if item.Type != "SimpleItem" {
			continue
		}
		wp := Waypoint{
			Seq:          len(waypoints),
			OriginalSeq:  len(waypoints),
			Frame:        frameGlobalRelativeAlt,
			Command:      item.Command,
			Autocontinue: 1,
			Param1:       item.Param1,
			Param2:       item.Param2,
			Param3:       item.Param3,
			Param4:       item.Param4,
		}
		if wp.Command == 0 {
			wp.Command = wire.CmdNavWaypoint
		}
		if len(item.Coordinate) >= 2 {
			wp.Lat, wp.Lon = item.Coordinate[0], item.Coordinate[1]
		}
		if len(item.Coordinate) >= 3 {
			wp.Alt = item.Coordinate[2]
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints, nil
}
