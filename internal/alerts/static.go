package alerts

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// StaticSource serves alerts from memory, typically loaded from a YAML
// fixture file for demos and tests.
type StaticSource struct {
	suricata []SuricataAlert
	zeek     []ZeekLog
}

type fixtureFile struct {
	Suricata []SuricataAlert `yaml:"suricata"`
	Zeek     []ZeekLog       `yaml:"zeek"`
}

// LoadStaticSource reads a fixture file of the form
//
//	suricata: [{id, timestamp, src_ip, ...}]
//	zeek:     [{id, timestamp, src_ip, ...}]
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff fixtureFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse alerts fixture %s: %w", path, err)
	}
	return NewStaticSource(ff.Suricata, ff.Zeek), nil
}

func NewStaticSource(suricata []SuricataAlert, zeek []ZeekLog) *StaticSource {
	s := &StaticSource{
		suricata: append([]SuricataAlert(nil), suricata...),
		zeek:     append([]ZeekLog(nil), zeek...),
	}
	sort.SliceStable(s.suricata, func(i, j int) bool { return s.suricata[i].Timestamp.After(s.suricata[j].Timestamp) })
	sort.SliceStable(s.zeek, func(i, j int) bool { return s.zeek[i].Timestamp.After(s.zeek[j].Timestamp) })
	return s
}

func (s *StaticSource) SuricataAlerts(_ context.Context, limit int) ([]SuricataAlert, error) {
	limit = ClampLimit(limit)
	if limit > len(s.suricata) {
		limit = len(s.suricata)
	}
	return append([]SuricataAlert(nil), s.suricata[:limit]...), nil
}

func (s *StaticSource) ZeekLogs(_ context.Context, limit int) ([]ZeekLog, error) {
	limit = ClampLimit(limit)
	if limit > len(s.zeek) {
		limit = len(s.zeek)
	}
	return append([]ZeekLog(nil), s.zeek[:limit]...), nil
}
