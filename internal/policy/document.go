// Package policy implements the typed IAM policy document spec §9
// asks for in place of a dynamic-typed dict: tagged Effect/Action
// values and a discriminated Condition type, serialized to the
// object-store's JSON shape only at the edge (MarshalJSON). This is
// deliberately not a generic IAM library — it only models what the
// synthesizer in synthesizer.go ever emits.
package policy

import "encoding/json"

// Effect is either Allow or Deny. The synthesizer only ever emits
// Allow statements; Deny exists so the type is not a lie.
type Effect string

// The two IAM effects.
const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

// Action is one of the small enum of S3 actions the broker grants.
type Action string

// Actions the policy synthesizer is able to grant.
const (
	ActionGetBucketLocation Action = "s3:GetBucketLocation"
	ActionListBucket        Action = "s3:ListBucket"
	ActionGetObject         Action = "s3:GetObject"
	ActionPutObject         Action = "s3:PutObject"
	ActionDeleteObject      Action = "s3:DeleteObject"
	ActionAll               Action = "s3:*"
)

// ConditionOperator is an IAM condition operator. The synthesizer only
// uses string-shaped operators.
type ConditionOperator string

// Condition operators the synthesizer emits.
const (
	StringLike   ConditionOperator = "StringLike"
	StringEquals ConditionOperator = "StringEquals"
)

// Condition is one discriminated (operator, key, values) triple, e.g.
// {StringLike, "s3:prefix", ["alice/*"]}.
type Condition struct {
	Operator ConditionOperator
	Key      string
	Values   []string
}

// Statement is one Allow/Deny block. Conditions, when present, are
// ANDed together the way IAM requires.
type Statement struct {
	Effect     Effect
	Action     []Action
	Resource   []string
	Conditions []Condition
}

// Document is a full IAM-compatible policy, spec §4.C / §6.
type Document struct {
	Version    string
	Statements []Statement
}

// NewDocument starts an empty 2012-10-17 document, the only version
// the object stores this broker targets understand.
func NewDocument() *Document {
	return &Document{Version: "2012-10-17"}
}

// Add appends a statement and returns the document for chaining.
func (d *Document) Add(s Statement) *Document {
	d.Statements = append(d.Statements, s)
	return d
}

// wireStatement is the AWS-shaped JSON for one statement. Field names
// are spelled correctly on purpose — spec §9 calls out a "resouces"
// typo in the source this is redesigned away from.
type wireStatement struct {
	Effect    Effect                       `json:"Effect"`
	Action    interface{}                  `json:"Action"`
	Resource  interface{}                  `json:"Resource"`
	Condition map[string]map[string]interface{} `json:"Condition,omitempty"`
}

type wireDocument struct {
	Version   string          `json:"Version"`
	Statement []wireStatement `json:"Statement"`
}

func wireActions(actions []Action) interface{} {
	if len(actions) == 1 {
		return actions[0]
	}
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

func wireResources(resources []string) interface{} {
	if len(resources) == 1 {
		return resources[0]
	}
	out := make([]string, len(resources))
	copy(out, resources)
	return out
}

func wireConditions(conditions []Condition) map[string]map[string]interface{} {
	if len(conditions) == 0 {
		return nil
	}
	out := make(map[string]map[string]interface{})
	for _, c := range conditions {
		op, ok := out[string(c.Operator)]
		if !ok {
			op = make(map[string]interface{})
			out[string(c.Operator)] = op
		}
		if len(c.Values) == 1 {
			op[c.Key] = c.Values[0]
		} else {
			op[c.Key] = c.Values
		}
	}
	return out
}

// MarshalJSON renders the document into the AWS IAM 2012-10-17 shape.
// Field order within a statement is not semantically significant
// (spec §6) but ARN strings are prefix-compared by the object store,
// so the Resource values themselves must be exact.
func (d *Document) MarshalJSON() ([]byte, error) {
	wire := wireDocument{Version: d.Version}
	for _, s := range d.Statements {
		wire.Statement = append(wire.Statement, wireStatement{
			Effect:    s.Effect,
			Action:    wireActions(s.Action),
			Resource:  wireResources(s.Resource),
			Condition: wireConditions(s.Conditions),
		})
	}
	return json.Marshal(wire)
}
