// Package rules provides the CEL-Go based campaign eligibility engine.
//
// A campaign may carry an eligibility expression restricting which sales
// it applies to, for example:
//
//	product_type == "RACAO" && quantity >= 10.0
//	"PIX" in payment_tokens
//
// Expressions must return bool.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
)

// Engine compiles and evaluates eligibility expressions. Compiled programs
// are kept per expression text, so campaigns sharing an expression share a
// program.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

// NewEngine creates a new eligibility engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("sale", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("product_type", cel.StringType),
		cel.Variable("payment_method", cel.StringType),
		cel.Variable("payment_tokens", cel.ListType(cel.StringType)),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("client_id", cel.StringType),
		cel.Variable("month", cel.StringType),
		cel.Variable("quantity", cel.DoubleType),
		cel.Variable("value_proposed", cel.DoubleType),
		cel.Variable("value_sold", cel.DoubleType),
		cel.Variable("margin", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate compiles an expression without caching it. The empty
// expression is valid.
func (e *Engine) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := e.compile(expr)
	return err
}

// Eligible reports whether the campaign applies to the sale. An empty
// expression means every sale. Compile and evaluation failures make the
// campaign ineligible and are logged.
func (e *Engine) Eligible(ctx context.Context, c *domain.Campaign, sale *domain.Sale) bool {
	if c == nil {
		return false
	}
	expr := strings.TrimSpace(c.Eligibility)
	if expr == "" {
		return true
	}

	prg, err := e.program(expr)
	if err != nil {
		slog.Warn("campaign eligibility does not compile",
			"campaign_id", c.ID,
			"error", err,
		)
		return false
	}

	out, _, err := prg.ContextEval(ctx, activation(sale))
	if err != nil {
		slog.Warn("campaign eligibility evaluation failed",
			"campaign_id", c.ID,
			"sale_id", saleID(sale),
			"error", err,
		)
		return false
	}

	b, ok := out.(types.Bool)
	return ok && bool(b)
}

// Filter returns the campaigns eligible for the sale, preserving order.
func (e *Engine) Filter(ctx context.Context, campaigns []*domain.Campaign, sale *domain.Sale) []*domain.Campaign {
	out := make([]*domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if e.Eligible(ctx, c, sale) {
			out = append(out, c)
		}
	}
	return out
}

// ProgramsCount returns the number of cached programs.
func (e *Engine) ProgramsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// Reset drops every cached program.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs = make(map[string]cel.Program)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.Reset()
	return nil
}

func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func (e *Engine) compile(expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile eligibility: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("eligibility must return bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create eligibility program: %w", err)
	}
	return prg, nil
}

func activation(sale *domain.Sale) map[string]any {
	if sale == nil {
		sale = &domain.Sale{}
	}

	tokens := commission.PaymentTokens(sale.PaymentMethod)
	if tokens == nil {
		tokens = []string{}
	}
	month := commission.MonthKey(sale.Date)

	return map[string]any{
		"sale": map[string]any{
			"id":             sale.ID,
			"product_type":   sale.ProductType,
			"payment_method": sale.PaymentMethod,
			"user_id":        sale.UserID,
			"client_id":      sale.ClientID,
			"month":          month,
			"quantity":       sale.Quantity,
			"value_proposed": sale.ValueProposed,
			"value_sold":     sale.ValueSold,
			"margin":         sale.MarginPercent,
		},
		"product_type":   sale.ProductType,
		"payment_method": sale.PaymentMethod,
		"payment_tokens": tokens,
		"user_id":        sale.UserID,
		"client_id":      sale.ClientID,
		"month":          month,
		"quantity":       sale.Quantity,
		"value_proposed": sale.ValueProposed,
		"value_sold":     sale.ValueSold,
		"margin":         sale.MarginPercent,
	}
}

func saleID(s *domain.Sale) string {
	if s == nil {
		return ""
	}
	return s.ID
}
