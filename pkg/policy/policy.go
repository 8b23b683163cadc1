// Package policy parses database policies and checks that the fields they
// reference are reachable under an action's field restrictions.
//
// A database policy is a boolean predicate such as
//
//	@claims.userId eq @item.owner_id and @item.status ne 'archived'
//
// where @claims.<type> refers to a claim of the caller's token and
// @item.<field> refers to a field of the row being accessed.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pthm/relay"
)

const (
	claimsPrefix = "@claims."
	itemPrefix   = "@item."
	wildcard     = "*"
)

// Fixed messages.
const (
	MsgEmptyClaimType      = "Claimtype cannot be empty."
	MsgFieldsInaccessible  = "Not all the columns required by policy are accessible."
	msgInvalidClaimTypeFmt = "Invalid format for claim type %s supplied in policy."
	msgMissingClaimFmt     = "Claim type %s referenced in policy is not present in the request."
)

var (
	claimToken = regexp.MustCompile(`@claims\.[^\s)]*`)
	itemToken  = regexp.MustCompile(`@item\.([A-Za-z0-9_]*)`)
	claimType  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	// resolveToken matches, in priority order, quoted literals (kept
	// verbatim), claim references, item references and comparison operators.
	resolveToken = regexp.MustCompile(`'(?:[^']|'')*'|@claims\.[^\s)]*|@item\.[A-Za-z0-9_]*|\b(?:eq|ne|gt|ge|lt|le)\b`)
)

var operators = map[string]string{
	"eq": "=",
	"ne": "<>",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

// Expression is a syntactically checked database policy.
type Expression struct {
	Raw string

	// Fields are the @item fields referenced, deduplicated, in order of
	// first appearance.
	Fields []string

	// Claims are the @claims types referenced, deduplicated, in order of
	// first appearance.
	Claims []string
}

// Parse checks the claim references of a policy and collects the fields
// and claims it mentions. It is purely syntactic: claims need not exist.
func Parse(policy string) (*Expression, error) {
	expr := &Expression{Raw: policy}

	seenClaims := make(map[string]bool)
	for _, tok := range claimToken.FindAllString(policy, -1) {
		typ := strings.TrimPrefix(tok, claimsPrefix)
		if typ == "" {
			return nil, relay.NewConfigValidationError(MsgEmptyClaimType)
		}
		if !claimType.MatchString(typ) {
			return nil, relay.ConfigValidationErrorf(msgInvalidClaimTypeFmt, typ)
		}
		if !seenClaims[typ] {
			seenClaims[typ] = true
			expr.Claims = append(expr.Claims, typ)
		}
	}

	seenFields := make(map[string]bool)
	for _, m := range itemToken.FindAllStringSubmatch(policy, -1) {
		field := m[1]
		if field == "" || seenFields[field] {
			continue
		}
		seenFields[field] = true
		expr.Fields = append(expr.Fields, field)
	}

	return expr, nil
}

// Resolve turns the policy into a SQL predicate. Claim references become
// quoted literals taken from claims, item references become the column
// names returned by column, and comparison operators become their SQL form.
// A claim missing from claims is a bad request.
func (e *Expression) Resolve(claims map[string]string, column func(field string) string) (string, error) {
	var missing string
	out := resolveToken.ReplaceAllStringFunc(e.Raw, func(tok string) string {
		switch {
		case strings.HasPrefix(tok, "'"):
			return tok
		case strings.HasPrefix(tok, claimsPrefix):
			typ := strings.TrimPrefix(tok, claimsPrefix)
			v, ok := claims[typ]
			if !ok {
				if missing == "" {
					missing = typ
				}
				return tok
			}
			return quote(v)
		case strings.HasPrefix(tok, itemPrefix):
			return column(strings.TrimPrefix(tok, itemPrefix))
		default:
			return operators[tok]
		}
	})
	if missing != "" {
		return "", relay.NewBadRequestError(fmt.Sprintf(msgMissingClaimFmt, missing))
	}
	return out, nil
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
