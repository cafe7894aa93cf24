package asr

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Cue is one subtitle entry
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Cues converts window transcripts to subtitle cues, skipping empty windows
func Cues(transcripts []Transcript) []Cue {
	var cues []Cue
	for _, tr := range transcripts {
		if tr.Text == "" {
			continue
		}
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: tr.Segment.Offset,
			End:   tr.Segment.Offset + tr.Segment.Length,
			Text:  tr.Text,
		})
	}
	return cues
}

// WriteSRT writes cues in SubRip format
func WriteSRT(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, cue := range cues {
		index := cue.Index
		if index == 0 {
			index = i + 1
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			index, srtTimestamp(cue.Start), srtTimestamp(cue.End), cue.Text)
	}
	return bw.Flush()
}

// srtTimestamp renders a duration as HH:MM:SS,mmm
func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// ParseSRT reads SubRip cues, tolerating blank-line variations and CRLF
func ParseSRT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	var cur *Cue
	var textLines []string

	flush := func() {
		if cur != nil && len(textLines) > 0 {
			cur.Text = strings.Join(textLines, "\n")
			cues = append(cues, *cur)
		}
		cur = nil
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if cur == nil {
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("expected cue index, got %q", line)
			}
			cur = &Cue{Index: index}
			continue
		}

		if cur.Start == 0 && cur.End == 0 && strings.Contains(line, "-->") {
			start, end, err := parseTimeRange(line)
			if err != nil {
				return nil, err
			}
			cur.Start, cur.End = start, end
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

func parseTimeRange(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed time range %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseTimestamp(s string) (time.Duration, error) {
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(s, "%d:%d:%d,%d", &h, &m, &sec, &ms); err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
