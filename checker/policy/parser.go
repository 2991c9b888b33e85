// Package policy reads the XML policy document into flat PolicyRule records.
package policy

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
	helper_util "github.com/dev-mohitbeniwal/permcheck/util/helper"
)

type policyDocument struct {
	XMLName xml.Name    `xml:"Policys"`
	Modules []xmlModule `xml:"Module"`
}

// Controller1 and Rule decode into slices whether they occur once or many times.
type xmlModule struct {
	Name        string          `xml:"Name"`
	Controllers []xmlController `xml:"Controller1"`
}

type xmlController struct {
	Rules []xmlRule `xml:"Rule"`
}

type xmlRule struct {
	RuleID    string        `xml:"RuleId"`
	Effect    string        `xml:"Effect"`
	Role      string        `xml:"Role"`
	Action    string        `xml:"Action"`
	Resource  string        `xml:"Resource"`
	Name      string        `xml:"Name"`
	Condition *xmlCondition `xml:"Condition"`
}

type xmlCondition struct {
	Restrictions []string `xml:"Restriction"`
}

// Document is the parsed policy document.
type Document struct {
	Modules  []model.ModuleDeclaration
	Warnings []string
}

var httpVerbs = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("httpverb", func(fl validator.FieldLevel) bool {
		_, ok := httpVerbs[strings.ToUpper(fl.Field().String())]
		return ok
	})
	return v
}

// Parse decodes the XML policy document. Malformed XML is an error; a document
// without any <Module> yields no modules and a warning.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", permcheck_errors.ErrInvalidPolicyDocument)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrInvalidPolicyDocument, err)
	}

	result := &Document{Modules: make([]model.ModuleDeclaration, 0, len(doc.Modules))}
	if len(doc.Modules) == 0 {
		logger.Warn("Policy document declares no modules")
		result.Warnings = append(result.Warnings, "policy document declares no <Module> elements")
		return result, nil
	}

	for _, m := range doc.Modules {
		decl := model.ModuleDeclaration{Name: strings.TrimSpace(m.Name)}
		for _, c := range m.Controllers {
			for _, r := range c.Rules {
				raw := model.RawRule{
					RuleID:   strings.TrimSpace(r.RuleID),
					Effect:   strings.TrimSpace(r.Effect),
					Role:     strings.TrimSpace(r.Role),
					Action:   strings.TrimSpace(r.Action),
					Resource: strings.TrimSpace(r.Resource),
					Name:     strings.TrimSpace(r.Name),
				}
				if r.Condition != nil {
					for _, restriction := range r.Condition.Restrictions {
						if strings.TrimSpace(restriction) != "" {
							raw.Restrictions = append(raw.Restrictions, restriction)
						}
					}
				}
				decl.Rules = append(decl.Rules, raw)
			}
		}
		result.Modules = append(result.Modules, decl)
	}

	return result, nil
}

// decodeDocument decodes the <Policys> root and rejects anything after it
// other than whitespace, comments and processing instructions.
func decodeDocument(data []byte) (*policyDocument, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var doc policyDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return &doc, nil
		}
		if err != nil {
			return nil, fmt.Errorf("after </Policys>: %w", err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("unexpected text after </Policys> at offset %d", dec.InputOffset())
			}
		default:
			return nil, fmt.Errorf("unexpected content after </Policys> at offset %d", dec.InputOffset())
		}
	}
}

// BuildRules flattens module declarations into ordered PolicyRules. Rules
// missing a role, action or resource are skipped with a warning.
func BuildRules(modules []model.ModuleDeclaration) ([]model.PolicyRule, []string) {
	rules := make([]model.PolicyRule, 0)
	var warnings []string

	for _, m := range modules {
		for i, raw := range m.Rules {
			rawCondition := strings.Join(raw.Restrictions, " && ")
			rule := model.PolicyRule{
				Role:      raw.Role,
				Action:    raw.Action,
				Resource:  raw.Resource,
				Condition: helper_util.StripWhitespace(rawCondition),
			}

			if err := validate.Struct(rule); err != nil {
				msg := fmt.Sprintf("module %q rule #%d (%s) skipped: %v", m.Name, i+1, raw.Name, err)
				logger.Warn("Skipping malformed policy rule",
					zap.String("module", m.Name),
					zap.Int("index", i),
					zap.String("name", raw.Name),
					zap.Error(err))
				warnings = append(warnings, msg)
				continue
			}

			if rawCondition != "" {
				if _, err := expr.Compile(rawCondition); err != nil {
					msg := fmt.Sprintf("module %q rule #%d (%s) has an unparsable condition: %v", m.Name, i+1, raw.Name, err)
					logger.Warn("Policy condition does not compile",
						zap.String("module", m.Name),
						zap.String("condition", rawCondition),
						zap.Error(err))
					warnings = append(warnings, msg)
				}
			}

			rules = append(rules, rule)
		}
	}

	return rules, warnings
}

// ParseRules is Parse followed by BuildRules.
func ParseRules(data []byte) ([]model.PolicyRule, []string, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	rules, warnings := BuildRules(doc.Modules)
	return rules, append(doc.Warnings, warnings...), nil
}
