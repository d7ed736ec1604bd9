// Package query composes SQL WHERE clauses from optional, independently
// toggleable search filters.
//
// Every filter that is present contributes exactly one predicate to the
// clause and one sentence to the human-readable explanation, so the two
// always agree on what the query matched. User input only ever travels
// through bind arguments.
package query

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateBounds is the sent-date window covered by the corpus. A date filter
// spanning the whole window (with null dates included) matches everything
// and composes to no predicate.
type DateBounds struct {
	Min time.Time
	Max time.Time
}

// Filter holds the optional search inputs. Zero values mean "not set".
type Filter struct {
	// Text is a websearch-style full text query. Double quotes for
	// phrases, OR for logical or, - for logical not.
	Text string

	// Entities are NER entity names; an email matches when it references
	// at least one of them.
	Entities []string

	// Topics are topic-model labels; an email matches when its top topic
	// is one of them.
	Topics []string

	// DateFrom and DateTo bound the sent date, inclusive.
	DateFrom time.Time
	DateTo   time.Time

	// IncludeNullDates also matches emails without a sent date.
	IncludeNullDates bool
}

// Clause is a composed boolean expression with its bind arguments and a
// matching explanation.
type Clause struct {
	predicates []string
	explains   []string

	// Args are the bind arguments for the placeholders in the predicates,
	// numbered from $1 in order of appearance.
	Args []any
}

// Compose builds the clause for f. Predicates appear in a fixed order:
// text, entities, topics, dates.
func Compose(f Filter, bounds DateBounds) Clause {
	var c Clause

	composeText(&c, f.Text)
	composeEntities(&c, f.Entities)
	composeTopics(&c, f.Topics)
	composeDates(&c, f, bounds)

	return c
}

// Where returns " WHERE ..." ready to append to a SELECT, or the empty
// string when no filters were present.
func (c Clause) Where() string {
	if len(c.predicates) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(c.predicates, " AND ")
}

// Explain returns a human-readable rendering of the clause, e.g.
// " where text body contains 'vaccine' and topic = 'testing'", or the
// empty string when no filters were present.
func (c Clause) Explain() string {
	if len(c.explains) == 0 {
		return ""
	}

	return " where " + strings.Join(c.explains, " and ")
}

// PredicateCount returns the number of predicates in the clause. It is
// always equal to the number of sentences in the explanation.
func (c Clause) PredicateCount() int {
	return len(c.predicates)
}

// NextArg returns the positional placeholder index that a query appending
// its own arguments (such as LIMIT) should use next.
func (c Clause) NextArg() int {
	return len(c.Args) + 1
}

func (c *Clause) add(predicate, explain string) {
	c.predicates = append(c.predicates, predicate)
	c.explains = append(c.explains, explain)
}

// bind registers an argument and returns its placeholder.
func (c *Clause) bind(arg any) string {
	c.Args = append(c.Args, arg)

	return fmt.Sprintf("$%d", len(c.Args))
}

func composeText(c *Clause, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	// websearch_to_tsquery treats double quotes as phrase markers; single
	// quotes from the user are normalized so quoted phrases still work.
	text = strings.ReplaceAll(text, "'", `"`)

	p := c.bind(text)
	c.add(
		fmt.Sprintf("to_tsvector('english', body) @@ websearch_to_tsquery('english', %s)", p),
		fmt.Sprintf("text body contains '%s'", text),
	)
}

func composeEntities(c *Clause, entities []string) {
	entities = compact(entities)
	if len(entities) == 0 {
		return
	}

	p := c.bind(entities)

	qualifier := ""
	if len(entities) > 1 {
		qualifier = "at least one of "
	}

	c.add(
		fmt.Sprintf("entities && %s::text[]", p),
		fmt.Sprintf("email references %s%s", qualifier, quoteList(entities)),
	)
}

func composeTopics(c *Clause, topics []string) {
	topics = compact(topics)

	switch len(topics) {
	case 0:
		return
	case 1:
		p := c.bind(topics[0])
		c.add(
			fmt.Sprintf("topic = %s", p),
			fmt.Sprintf("topic = '%s'", topics[0]),
		)
	default:
		p := c.bind(topics)
		c.add(
			fmt.Sprintf("topic = ANY(%s)", p),
			fmt.Sprintf("topic in (%s)", quoteList(topics)),
		)
	}
}

func composeDates(c *Clause, f Filter, bounds DateBounds) {
	start, end := f.DateFrom, f.DateTo

	// Fill an open side of the range from the corpus bounds.
	if start.IsZero() {
		start = bounds.Min
	}

	if end.IsZero() {
		end = bounds.Max
	}

	if start.IsZero() || end.IsZero() {
		return
	}

	// The full corpus window with null dates included matches every email.
	if f.IncludeNullDates && sameDay(start, bounds.Min) && sameDay(end, bounds.Max) {
		return
	}

	ps := c.bind(start.Format(dateLayout))
	pe := c.bind(end.Format(dateLayout))

	predicate := fmt.Sprintf("sent BETWEEN %s AND %s", ps, pe)
	explain := fmt.Sprintf("sent between %s and %s", start.Format(dateLayout), end.Format(dateLayout))

	if f.IncludeNullDates {
		predicate = fmt.Sprintf("(%s OR sent IS NULL)", predicate)
		explain += " or has no date"
	}

	c.add(predicate, explain)
}

// compact drops empty names and trims whitespace, preserving order.
func compact(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}

	return strings.Join(quoted, ", ")
}

func sameDay(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}
