package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/componentry/healthmon/internal/models"
)

// RuleEngine maps health-score dimensions to recommended actions. Rules come
// from a YAML pack when present, with built-in defaults otherwise.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule recommends actions when a score dimension drops below a floor.
type Rule struct {
	ID              string   `yaml:"id"`
	Dimension       string   `yaml:"dimension"`
	Below           float64  `yaml:"below"`
	Priority        int      `yaml:"priority"`
	Recommendations []string `yaml:"recommendations"`
}

// RulePackFile is the YAML root structure.
type RulePackFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. A missing or empty path
// yields the built-in default rules.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &RuleEngine{rules: defaultRules(), logger: logger}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RuleEngine{rules: defaultRules(), logger: logger}, nil
		}
		return nil, err
	}
	var pack RulePackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse recommendation rules: %w", err)
	}
	if len(pack.Rules) == 0 {
		return &RuleEngine{rules: defaultRules(), logger: logger}, nil
	}
	return &RuleEngine{rules: pack.Rules, logger: logger}, nil
}

func defaultRules() []Rule {
	return []Rule{
		{ID: "migration-lagging", Dimension: "migration", Below: 80, Priority: 2,
			Recommendations: []string{"Accelerate migration of remaining components"}},
		{ID: "adoption-low", Dimension: "adoption", Below: 60, Priority: 3,
			Recommendations: []string{"Increase design-system adoption across pages"}},
		{ID: "quality-degraded", Dimension: "quality", Below: 70, Priority: 2,
			Recommendations: []string{"Reduce error rate; review recurring error patterns"}},
		{ID: "accessibility-gaps", Dimension: "accessibility", Below: 85, Priority: 2,
			Recommendations: []string{"Address open accessibility issues"}},
	}
}

// Recommend produces the prioritised action list for the current score and
// open critical alert count.
func (e *RuleEngine) Recommend(score models.HealthScore, criticalAlerts int) []models.Recommendation {
	if e == nil {
		return nil
	}

	recs := make([]models.Recommendation, 0)
	if criticalAlerts > 0 {
		recs = append(recs, models.Recommendation{
			Priority: 1,
			Action:   fmt.Sprintf("Resolve %d critical alerts immediately", criticalAlerts),
		})
	}

	seen := make(map[string]struct{})
	for _, rule := range e.rules {
		value, ok := dimensionValue(score, rule.Dimension)
		if !ok {
			e.logger.Debug("skipping rule with unknown dimension",
				slog.String("rule", rule.ID), slog.String("dimension", rule.Dimension))
			continue
		}
		if value >= rule.Below {
			continue
		}
		priority := rule.Priority
		if priority <= 0 {
			priority = 3
		}
		for _, action := range rule.Recommendations {
			if action == "" {
				continue
			}
			if _, dup := seen[action]; dup {
				continue
			}
			seen[action] = struct{}{}
			recs = append(recs, models.Recommendation{Priority: priority, Action: action})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}

func dimensionValue(score models.HealthScore, dimension string) (float64, bool) {
	switch dimension {
	case "migration":
		return score.Migration, true
	case "adoption":
		return score.Adoption, true
	case "quality":
		return score.Quality, true
	case "accessibility":
		return score.Accessibility, true
	case "performance":
		return score.Performance, true
	case "overall":
		return score.Overall, true
	default:
		return 0, false
	}
}
