package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/erazemk/shelfkeeper/internal/model"
)

// ContainerPayload is a container create or update request. Numeric fields
// may be JSON numbers or strings. A nil field was not submitted.
type ContainerPayload struct {
	UserID   any              `json:"user_id"`
	Shelf    any              `json:"shelf"`
	Row      any              `json:"row"`
	Expires  any              `json:"expires"`
	Contents []ContentPayload `json:"contents_attributes"`

	// contentsSet distinguishes an absent contents_attributes from an empty one.
	contentsSet bool
}

// ContentPayload is one entry of contents_attributes.
type ContentPayload struct {
	ProductID     any `json:"product_id"`
	Concentration any `json:"concentration"`
}

// SetContents marks the content list as submitted.
func (p *ContainerPayload) SetContents(contents []ContentPayload) {
	p.Contents = contents
	p.contentsSet = true
}

func (p *ContainerPayload) UnmarshalJSON(data []byte) error {
	type plain ContainerPayload
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if inner, ok := raw["container"]; ok && len(raw) == 1 {
		return p.UnmarshalJSON(inner)
	}

	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ContainerPayload(v)
	_, p.contentsSet = raw["contents_attributes"]
	return nil
}

// ProductPayload is a product create or update request.
type ProductPayload struct {
	Name   *string `json:"name"`
	EPAReg *string `json:"epa_reg"`
}

func (p *ProductPayload) UnmarshalJSON(data []byte) error {
	type plain ProductPayload
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if inner, ok := raw["product"]; ok && len(raw) == 1 {
		return p.UnmarshalJSON(inner)
	}

	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ProductPayload(v)
	return nil
}

// containerFields is the coerced form of a container checked by the validator.
type containerFields struct {
	Shelf    int             `json:"shelf" validate:"gt=0"`
	Row      string          `json:"row" validate:"oneof=A B C D E"`
	Contents []contentFields `json:"contents" validate:"min=1,dive"`
}

type contentFields struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
}

type productFields struct {
	Name   string `json:"name" validate:"required,max=200"`
	EPAReg string `json:"epa_reg" validate:"required,max=64"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the validator and records one message per failing field,
// skipping fields that already failed coercion.
func checkStruct(s any, errs *fieldErrors) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.add("_", err.Error())
		return
	}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if errs.has(field) {
			continue
		}
		errs.add(field, fieldMessage(field, fe))
	}
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " can't be blank"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long (maximum is %s characters)", field, fe.Param())
	case "min":
		return field + " must contain at least one entry"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// blank reports whether a submitted value counts as absent.
func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func toInt(field string, v any) (int64, error) {
	if _, ok := v.(bool); ok {
		return 0, fmt.Errorf("%s is not a number", field)
	}
	if f, ok := v.(float64); ok && f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s is not a number", field)
	}
	return n, nil
}

func toFloat(field string, v any) (float64, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	if _, ok := v.(bool); ok {
		return 0, fmt.Errorf("%s is not a number", field)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not a number", field)
	}
	return f, nil
}

func toRow(v any) (string, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("row is not a string")
	}
	return strings.ToUpper(strings.TrimSpace(s)), nil
}

// ParseExpires reads a date in any common layout and returns its calendar
// date. Timestamps keep the date they name in their own zone. Bare numbers
// other than yyyymmdd are rejected rather than read as Unix time.
func ParseExpires(v any) (model.Date, error) {
	s, ok := v.(string)
	if !ok {
		return model.Date{}, fmt.Errorf("expires is not a valid date")
	}
	s = strings.TrimSpace(s)
	if len(s) > 8 && strings.Trim(s, "0123456789") == "" {
		return model.Date{}, fmt.Errorf("expires is not a valid date")
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return model.Date{}, fmt.Errorf("expires is not a valid date")
	}
	return model.DateOf(t), nil
}

// applyContainer merges the fields present in p over c. Missing fields keep
// their value from c, so create starts from a zero container.
func applyContainer(c *model.Container, p *ContainerPayload, errs *fieldErrors) {
	if p.Shelf != nil {
		if blank(p.Shelf) {
			errs.add("shelf", "shelf can't be blank")
		} else if n, err := toInt("shelf", p.Shelf); err != nil {
			errs.add("shelf", err.Error())
		} else {
			c.Shelf = int(n)
		}
	} else if c.Shelf == 0 {
		errs.add("shelf", "shelf can't be blank")
	}

	if p.Row != nil {
		if blank(p.Row) {
			errs.add("row", "row can't be blank")
		} else if row, err := toRow(p.Row); err != nil {
			errs.add("row", err.Error())
		} else {
			c.Row = row
		}
	} else if c.Row == "" {
		errs.add("row", "row can't be blank")
	}

	if p.Expires != nil {
		if blank(p.Expires) {
			errs.add("expires", "expires can't be blank")
		} else if d, err := ParseExpires(p.Expires); err != nil {
			errs.add("expires", err.Error())
		} else {
			c.Expires = d
		}
	} else if c.Expires.IsZero() {
		errs.add("expires", "expires can't be blank")
	}

	if p.contentsSet || p.Contents != nil {
		c.Contents = make([]model.Content, 0, len(p.Contents))
		for i, cp := range p.Contents {
			var content model.Content
			prefix := fmt.Sprintf("contents[%d].", i)

			if blank(cp.ProductID) {
				errs.add(prefix+"product_id", prefix+"product_id can't be blank")
			} else if id, err := toInt(prefix+"product_id", cp.ProductID); err != nil {
				errs.add(prefix+"product_id", err.Error())
			} else {
				content.ProductID = id
			}

			if blank(cp.Concentration) {
				errs.add(prefix+"concentration", prefix+"concentration can't be blank")
			} else if f, err := toFloat(prefix+"concentration", cp.Concentration); err != nil {
				errs.add(prefix+"concentration", err.Error())
			} else {
				content.Concentration = f
			}

			c.Contents = append(c.Contents, content)
		}
	}
}

func checkContainer(c *model.Container, errs *fieldErrors) {
	fields := containerFields{Shelf: c.Shelf, Row: c.Row}
	for _, content := range c.Contents {
		fields.Contents = append(fields.Contents, contentFields{ProductID: content.ProductID})
	}
	checkStruct(fields, errs)
}
