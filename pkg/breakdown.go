package pkg

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SessionBreakdown is the body returned by
// GET /api/mentor/{mentorId}/sessions/{sessionId}/breakdown.
type SessionBreakdown struct {
	SessionID   string          `json:"sessionId"`
	SessionName string          `json:"sessionName"`
	VideoURL    string          `json:"videoUrl"`
	Duration    float64         `json:"duration"`
	Timeline    SessionTimeline `json:"timeline"`
	Metrics     []SessionMetric `json:"metrics"`
}

type SessionTimeline struct {
	Audio      []AudioSegment      `json:"audio"`
	Video      []VideoSegment      `json:"video"`
	Transcript []TranscriptSegment `json:"transcript"`
	ScoreDips  []ScoreMarker       `json:"scoreDips"`
	ScorePeaks []ScoreMarker       `json:"scorePeaks"`
}

type AudioSegment struct {
	StartTime int    `json:"startTime"`
	EndTime   int    `json:"endTime"`
	Pace      int    `json:"pace"`
	Pauses    int    `json:"pauses"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type VideoSegment struct {
	StartTime  int     `json:"startTime"`
	EndTime    int     `json:"endTime"`
	EyeContact float64 `json:"eyeContact"`
	Gestures   int     `json:"gestures"`
	Type       string  `json:"type"`
	Message    string  `json:"message"`
}

type TranscriptSegment struct {
	StartTime  int      `json:"startTime"`
	EndTime    int      `json:"endTime"`
	Text       string   `json:"text"`
	KeyPhrases []string `json:"keyPhrases"`
}

type ScoreMarker struct {
	Timestamp int    `json:"timestamp"`
	Score     int    `json:"score"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

type SessionMetric struct {
	Name               string   `json:"name"`
	Score              int      `json:"score"`
	ConfidenceInterval []int    `json:"confidenceInterval"`
	WhatHelped         []string `json:"whatHelped"`
	WhatHurt           []string `json:"whatHurt"`
}

// BuildBreakdown merges a session record with its stored timeline and metrics
// JSON. Stored documents are loosely typed: numbers may arrive as strings,
// fields may use snake_case or short aliases, and malformed entries are dropped.
func BuildBreakdown(rec SessionRecord, timeline, metrics []byte) SessionBreakdown {
	out := SessionBreakdown{
		SessionID:   rec.SessionID,
		SessionName: rec.SessionName,
		VideoURL:    rec.VideoURL,
		Duration:    rec.Duration,
		Timeline: SessionTimeline{
			Audio:      []AudioSegment{},
			Video:      []VideoSegment{},
			Transcript: []TranscriptSegment{},
			ScoreDips:  []ScoreMarker{},
			ScorePeaks: []ScoreMarker{},
		},
		Metrics: []SessionMetric{},
	}
	if out.SessionName == "" {
		out.SessionName = "Session " + rec.SessionID
	}

	var rawTimeline struct {
		Audio      json.RawMessage `json:"audio"`
		Video      json.RawMessage `json:"video"`
		Transcript json.RawMessage `json:"transcript"`
		ScoreDips  json.RawMessage `json:"scoreDips"`
		ScorePeaks json.RawMessage `json:"scorePeaks"`
	}
	if isJSONObject(timeline) && json.Unmarshal(timeline, &rawTimeline) == nil {
		for _, item := range jsonObjects(rawTimeline.Audio) {
			var seg rawSegment
			if json.Unmarshal(item, &seg) != nil {
				continue
			}
			out.Timeline.Audio = append(out.Timeline.Audio, AudioSegment{
				StartTime: seg.start(),
				EndTime:   seg.end(),
				Pace:      int(seg.Pace),
				Pauses:    int(seg.Pauses),
				Type:      orDefault(string(seg.Type), "normal"),
				Message:   string(seg.Message),
			})
		}
		for _, item := range jsonObjects(rawTimeline.Video) {
			var seg rawSegment
			if json.Unmarshal(item, &seg) != nil {
				continue
			}
			eye := seg.EyeContact
			if eye == 0 {
				eye = seg.EyeContactSnake
			}
			out.Timeline.Video = append(out.Timeline.Video, VideoSegment{
				StartTime:  seg.start(),
				EndTime:    seg.end(),
				EyeContact: float64(eye),
				Gestures:   int(seg.Gestures),
				Type:       orDefault(string(seg.Type), "good"),
				Message:    string(seg.Message),
			})
		}
		for _, item := range jsonObjects(rawTimeline.Transcript) {
			var seg rawSegment
			if json.Unmarshal(item, &seg) != nil {
				continue
			}
			phrases := seg.KeyPhrases
			if len(phrases) == 0 {
				phrases = seg.KeyPhrasesSnake
			}
			out.Timeline.Transcript = append(out.Timeline.Transcript, TranscriptSegment{
				StartTime:  seg.start(),
				EndTime:    seg.end(),
				Text:       orDefault(string(seg.Text), string(seg.TranscriptText)),
				KeyPhrases: append([]string{}, phrases...),
			})
		}
		out.Timeline.ScoreDips = scoreMarkers(rawTimeline.ScoreDips)
		out.Timeline.ScorePeaks = scoreMarkers(rawTimeline.ScorePeaks)
	}

	for _, item := range jsonObjects(metrics) {
		var m rawMetric
		if json.Unmarshal(item, &m) != nil {
			continue
		}
		interval := m.ConfidenceInterval
		if len(interval) == 0 {
			interval = m.ConfidenceIntervalSnake
		}
		ci := make([]int, 0, len(interval))
		for _, v := range interval {
			ci = append(ci, int(v))
		}
		if len(ci) == 0 {
			ci = []int{0, 100}
		}
		helped := m.WhatHelped
		if len(helped) == 0 {
			helped = m.WhatHelpedSnake
		}
		hurt := m.WhatHurt
		if len(hurt) == 0 {
			hurt = m.WhatHurtSnake
		}
		out.Metrics = append(out.Metrics, SessionMetric{
			Name:               orDefault(string(m.Name), string(m.Metric)),
			Score:              int(m.Score),
			ConfidenceInterval: ci,
			WhatHelped:         append([]string{}, helped...),
			WhatHurt:           append([]string{}, hurt...),
		})
	}

	if out.Duration == 0 {
		for _, seg := range out.Timeline.Transcript {
			if float64(seg.EndTime) > out.Duration {
				out.Duration = float64(seg.EndTime)
			}
		}
	}
	return out
}

func scoreMarkers(raw json.RawMessage) []ScoreMarker {
	out := []ScoreMarker{}
	for _, item := range jsonObjects(raw) {
		var m rawMarker
		if json.Unmarshal(item, &m) != nil {
			continue
		}
		ts := m.Timestamp
		if ts == 0 {
			ts = m.Time
		}
		if ts == 0 {
			ts = m.TS
		}
		out = append(out, ScoreMarker{
			Timestamp: int(ts),
			Score:     int(m.Score),
			Message:   string(m.Message),
			Type:      string(m.Type),
		})
	}
	return out
}

type rawSegment struct {
	StartTime       looseNumber  `json:"startTime"`
	Start           looseNumber  `json:"start"`
	EndTime         looseNumber  `json:"endTime"`
	End             looseNumber  `json:"end"`
	Pace            looseNumber  `json:"pace"`
	Pauses          looseNumber  `json:"pauses"`
	EyeContact      looseNumber  `json:"eyeContact"`
	EyeContactSnake looseNumber  `json:"eye_contact"`
	Gestures        looseNumber  `json:"gestures"`
	Type            looseString  `json:"type"`
	Message         looseString  `json:"message"`
	Text            looseString  `json:"text"`
	TranscriptText  looseString  `json:"transcript"`
	KeyPhrases      looseStrings `json:"keyPhrases"`
	KeyPhrasesSnake looseStrings `json:"key_phrases"`
}

func (s rawSegment) start() int {
	if s.StartTime != 0 {
		return int(s.StartTime)
	}
	return int(s.Start)
}

func (s rawSegment) end() int {
	if s.EndTime != 0 {
		return int(s.EndTime)
	}
	return int(s.End)
}

type rawMarker struct {
	Timestamp looseNumber `json:"timestamp"`
	Time      looseNumber `json:"time"`
	TS        looseNumber `json:"ts"`
	Score     looseNumber `json:"score"`
	Message   looseString `json:"message"`
	Type      looseString `json:"type"`
}

type rawMetric struct {
	Name                    looseString   `json:"name"`
	Metric                  looseString   `json:"metric"`
	Score                   looseNumber   `json:"score"`
	ConfidenceInterval      looseNumbers  `json:"confidenceInterval"`
	ConfidenceIntervalSnake looseNumbers  `json:"confidence_interval"`
	WhatHelped              looseStrings  `json:"whatHelped"`
	WhatHelpedSnake         looseStrings  `json:"what_helped"`
	WhatHurt                looseStrings  `json:"whatHurt"`
	WhatHurtSnake           looseStrings  `json:"what_hurt"`
}

// looseNumber accepts JSON numbers and numeric strings; anything else is 0.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	*n = 0
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		*n = looseNumber(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			*n = looseNumber(f)
		}
	}
	return nil
}

// looseNumbers keeps the numeric members of a JSON array.
type looseNumbers []looseNumber

func (s *looseNumbers) UnmarshalJSON(data []byte) error {
	*s = nil
	var items []looseNumber
	if json.Unmarshal(data, &items) == nil {
		*s = items
	}
	return nil
}

// looseString accepts a JSON string; anything else is "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if json.Unmarshal(data, &v) == nil {
		*s = looseString(v)
	} else {
		*s = ""
	}
	return nil
}

// looseStrings keeps the string members of a JSON array.
type looseStrings []string

func (s *looseStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	var items []any
	if json.Unmarshal(data, &items) != nil {
		return nil
	}
	for _, item := range items {
		if str, ok := item.(string); ok {
			*s = append(*s, str)
		}
	}
	return nil
}

// jsonObjects returns the object members of a JSON array.
func jsonObjects(raw []byte) []json.RawMessage {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := items[:0]
	for _, item := range items {
		if isJSONObject(item) {
			out = append(out, item)
		}
	}
	return out
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
