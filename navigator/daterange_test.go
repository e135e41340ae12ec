package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRecorder struct {
	outcomes []string
}

func (r *recordingRecorder) ObserveConversion(translator, outcome string) {
	r.outcomes = append(r.outcomes, translator+"/"+outcome)
}

// stubOperands overrides value resolution of the default resolver.
type stubOperands struct {
	clause.OperandResolver
	values func(operand clause.Operand) ([]clause.Literal, error)
}

func (s stubOperands) Values(_ context.Context, _ clause.User, operand clause.Operand, _ clause.TerminalClause) ([]clause.Literal, error) {
	return s.values(operand)
}

var createdConfig = DateSearcherConfig{
	ID:          "created",
	ClauseNames: NewClauseNames("created", "createdDate"),
	FieldName:   "created",
}

func newDateTranslator(t *testing.T, operands clause.OperandResolver, opts Options) *DateRangeTranslator {
	t.Helper()
	if operands == nil {
		operands = resolvers.NewOperandResolver(resolvers.DefaultFunctions())
	}
	tr, err := NewDateRangeTranslator(createdConfig, operands, opts)
	require.NoError(t, err)
	return tr
}

func created(op clause.Operator, operand clause.Operand) clause.TerminalClause {
	return clause.Terminal("created", op, operand)
}

func TestNewDateRangeTranslator_Misconfigured(t *testing.T) {
	_, err := NewDateRangeTranslator(createdConfig, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewDateRangeTranslator(DateSearcherConfig{ClauseNames: NewClauseNames("created")}, resolvers.NewOperandResolver(nil), DefaultOptions())
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewDateRangeTranslator(DateSearcherConfig{ID: "created"}, resolvers.NewOperandResolver(nil), DefaultOptions())
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestDateRangeTranslator_Convert(t *testing.T) {
	secondsOnly := time.Date(1981, 1, 12, 0, 0, 30, 500*int(time.Millisecond), time.UTC).UnixMilli()

	cases := []struct {
		name string
		root clause.Clause
		want DateRange
	}{
		{
			name: "absolute after",
			root: created(clause.OperatorGreaterThanEquals, clause.String("2024-01-01")),
			want: DateRange{After: "2024-01-01", Fits: true},
		},
		{
			name: "relative previous",
			root: created(clause.OperatorGreaterThanEquals, clause.String("-1d")),
			want: DateRange{Previous: "-1d", Fits: true},
		},
		{
			name: "relative next",
			root: created(clause.OperatorLessThanEquals, clause.String("-3w")),
			want: DateRange{Next: "-3w", Fits: true},
		},
		{
			name: "alias and unrelated terms",
			root: clause.And(
				clause.Terminal("createdDate", clause.OperatorLessThanEquals, clause.String("2008/12/25")),
				clause.Terminal("project", clause.OperatorEquals, clause.String("HSP")),
				created(clause.OperatorGreaterThanEquals, clause.String("1981-1-12")),
			),
			want: DateRange{Before: "2008-12-25", After: "1981-01-12", Fits: true},
		},
		{
			name: "relative both bounds",
			root: clause.And(
				created(clause.OperatorGreaterThanEquals, clause.String("-2w")),
				created(clause.OperatorLessThanEquals, clause.String("-2h")),
			),
			want: DateRange{Previous: "-2w", Next: "-2h", Fits: true},
		},
		{
			name: "relative and absolute on the same side",
			root: clause.And(
				created(clause.OperatorGreaterThanEquals, clause.String("-2w")),
				created(clause.OperatorGreaterThanEquals, clause.String("2024/01/01")),
			),
			want: DateRange{Previous: "-2w", After: "2024-01-01", Fits: true},
		},
		{
			name: "epoch milliseconds ignore seconds",
			root: created(clause.OperatorLessThanEquals, clause.Number(secondsOnly)),
			want: DateRange{Before: "1981-01-12", Fits: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newDateTranslator(t, nil, DefaultOptions())

			got, err := tr.Convert(context.Background(), clause.User{Name: "fred"}, tc.root, false)

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestDateRangeTranslator_ConvertDoesNotFit(t *testing.T) {
	cases := []struct {
		name string
		root clause.Clause
	}{
		{"duplicate absolute upper", clause.And(
			created(clause.OperatorLessThanEquals, clause.String("2024-01-01")),
			created(clause.OperatorLessThanEquals, clause.String("2024-02-01")),
		)},
		{"duplicate absolute lower", clause.And(
			created(clause.OperatorGreaterThanEquals, clause.String("2024-01-01")),
			created(clause.OperatorGreaterThanEquals, clause.Number(0)),
		)},
		{"duplicate relative upper", clause.And(
			created(clause.OperatorLessThanEquals, clause.String("-2w")),
			created(clause.OperatorLessThanEquals, clause.String("-2h")),
		)},
		{"duplicate relative lower", clause.And(
			created(clause.OperatorGreaterThanEquals, clause.String("-2w")),
			created(clause.OperatorGreaterThanEquals, clause.String("-2h")),
			created(clause.OperatorLessThanEquals, clause.String("-5h")),
		)},
		{"function operand", created(clause.OperatorLessThanEquals, clause.Function("now"))},
		{"function operand with equals", created(clause.OperatorEquals, clause.Function("now"))},
		{"empty operand", created(clause.OperatorLessThanEquals, clause.Empty())},
		{"several values", created(clause.OperatorLessThanEquals, clause.Strings("something", "more"))},
		{"equals operator", created(clause.OperatorEquals, clause.String("2024-01-01"))},
		{"strict less than", created(clause.OperatorLessThan, clause.String("2024-01-01"))},
		{"unparseable", created(clause.OperatorLessThanEquals, clause.String("13/13/2008"))},
		{"under not", clause.Not(created(clause.OperatorLessThanEquals, clause.String("2024-01-01")))},
		{"under or", clause.Or(
			created(clause.OperatorLessThanEquals, clause.String("2024-01-01")),
			clause.Terminal("project", clause.OperatorEquals, clause.String("HSP")),
		)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingRecorder{}
			tr := newDateTranslator(t, nil, Options{Metrics: rec})

			got, err := tr.Convert(context.Background(), clause.User{}, tc.root, true)

			require.NoError(t, err)
			assert.Nil(t, got)
			assert.Equal(t, []string{"date_range/not_fit"}, rec.outcomes)
		})
	}
}

func TestDateRangeTranslator_ConvertNoClauses(t *testing.T) {
	rec := &recordingRecorder{}
	tr := newDateTranslator(t, nil, Options{Metrics: rec})

	got, err := tr.Convert(context.Background(), clause.User{}, nil, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = tr.Convert(context.Background(), clause.User{}, clause.Terminal("updated", clause.OperatorLessThanEquals, clause.String("-1d")), false)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{"date_range/no_match", "date_range/no_match"}, rec.outcomes)
}

func TestDateRangeTranslator_LossyTimeComponent(t *testing.T) {
	tr := newDateTranslator(t, nil, DefaultOptions())
	root := clause.And(
		created(clause.OperatorLessThanEquals, clause.String("2008/12/25 15:00")),
		created(clause.OperatorGreaterThanEquals, clause.String("2008/10/6")),
	)

	lossy, err := tr.Convert(context.Background(), clause.User{}, root, false)
	require.NoError(t, err)
	require.NotNil(t, lossy)
	assert.Equal(t, DateRange{Before: "2008-12-25", After: "2008-10-06", Fits: false}, *lossy)

	exact, err := tr.Convert(context.Background(), clause.User{}, root, true)
	require.NoError(t, err)
	require.NotNil(t, exact)
	assert.Equal(t, DateRange{Before: "2008-12-25 15:00", After: "2008-10-06", Fits: true}, *exact)
}

func TestDateRangeTranslator_UserLocation(t *testing.T) {
	tr := newDateTranslator(t, nil, DefaultOptions())
	loc := time.FixedZone("UTC+10", 10*60*60)
	millis := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC).UnixMilli()

	got, err := tr.Convert(context.Background(), clause.User{Location: loc}, created(clause.OperatorGreaterThanEquals, clause.Number(millis)), false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-02", got.After)
	assert.False(t, got.Fits)
}

func TestDateRangeTranslator_ResolverOutcomes(t *testing.T) {
	base := resolvers.NewOperandResolver(nil)
	resolverErr := errors.New("boom")

	cases := []struct {
		name    string
		values  func(clause.Operand) ([]clause.Literal, error)
		wantErr bool
	}{
		{"nil result", func(clause.Operand) ([]clause.Literal, error) { return nil, nil }, false},
		{"empty literal", func(o clause.Operand) ([]clause.Literal, error) {
			return []clause.Literal{clause.EmptyLiteral(o)}, nil
		}, false},
		{"failure", func(clause.Operand) ([]clause.Literal, error) { return nil, resolverErr }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newDateTranslator(t, stubOperands{OperandResolver: base, values: tc.values}, DefaultOptions())

			got, err := tr.Convert(context.Background(), clause.User{}, created(clause.OperatorLessThanEquals, clause.String("-67w")), false)

			assert.Nil(t, got)
			if tc.wantErr {
				assert.ErrorIs(t, err, resolverErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDateRangeTranslator_ClauseFor(t *testing.T) {
	tr := newDateTranslator(t, nil, DefaultOptions())
	user := clause.User{}

	assert.Nil(t, tr.ClauseFor(user, DateRange{}))

	single := tr.ClauseFor(user, DateRange{Previous: "-1d"})
	assert.True(t, clause.Equal(created(clause.OperatorGreaterThanEquals, clause.String("-1d")), single))

	all := tr.ClauseFor(user, DateRange{Before: "2024-02-01 09:30", After: "2024-01-01", Previous: "-2w", Next: "1d"})
	want := clause.And(
		created(clause.OperatorGreaterThanEquals, clause.String("-2w")),
		created(clause.OperatorLessThanEquals, clause.String("1d")),
		created(clause.OperatorGreaterThanEquals, clause.String("2024-01-01")),
		created(clause.OperatorLessThanEquals, clause.String("2024-02-01 09:30")),
	)
	assert.True(t, clause.Equal(want, all), "got %s", clause.Format(all))

	raw := tr.ClauseFor(user, DateRange{Before: "not a date"})
	assert.True(t, clause.Equal(created(clause.OperatorLessThanEquals, clause.String("not a date")), raw))
}

func TestDateRangeTranslator_ClauseForDisplayLayouts(t *testing.T) {
	tr := newDateTranslator(t, nil, Options{Layouts: DateLayouts{Date: "02/Jan/06", DateTime: "02/Jan/06 3:04 PM"}})

	got := tr.ClauseFor(clause.User{}, DateRange{After: "12/Jan/81", Before: "25/Dec/08 3:00 PM"})

	want := clause.And(
		created(clause.OperatorGreaterThanEquals, clause.String("1981-01-12")),
		created(clause.OperatorLessThanEquals, clause.String("2008-12-25 15:00")),
	)
	assert.True(t, clause.Equal(want, got), "got %s", clause.Format(got))
}

func TestDateRangeTranslator_RoundTrip(t *testing.T) {
	tr := newDateTranslator(t, nil, DefaultOptions())
	ctx := context.Background()
	in := DateRange{After: "2024-01-01", Before: "2024-03-31 18:45", Previous: "-4w 2d", Fits: true}

	rebuilt := tr.ClauseFor(clause.User{}, in)
	out, err := tr.Convert(ctx, clause.User{}, rebuilt, true)

	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)
}

func TestDateRangeTranslator_Validate(t *testing.T) {
	tr := newDateTranslator(t, nil, DefaultOptions())
	user := clause.User{}

	assert.NoError(t, tr.Validate(user, DateRange{After: "2024-01-01", Before: "2024-01-01 10:00", Previous: "-1w", Next: "1d"}))
	assert.NoError(t, tr.Validate(user, DateRange{}))

	err := tr.Validate(user, DateRange{After: "yesterday", Next: "soon"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, verr.Fields, "created:after")
	assert.Contains(t, verr.Fields, "created:next")
	assert.Len(t, verr.Fields, 2)

	err = tr.Validate(user, DateRange{After: "2024-02-01", Before: "2024-01-01", Previous: "1d", Next: "-1d"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "after date is later than before date", verr.Fields["created:after"])
	assert.Equal(t, "previous period is later than next period", verr.Fields["created:previous"])
}

func TestDateRange_Params(t *testing.T) {
	r := DateRange{After: "2024-01-01", Next: "1d", Fits: true}

	params := r.Params("created")
	assert.Equal(t, map[string]string{"created:after": "2024-01-01", "created:next": "1d"}, params)

	params["created:before"] = "  "
	params["updated:before"] = "2024-01-01"
	assert.Equal(t, r, ParseDateParams("created", params))
}
