package reactor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
)

// Static error variables for BDD tests
var (
	errValueMismatch    = errors.New("value mismatch")
	errUnexpectedErrors = errors.New("value unexpectedly has errors")
	errExpectedErrors   = errors.New("value should have errors")
	errHandlerRan       = errors.New("short-circuited handler ran anyway")
	errEventNotSeen     = errors.New("expected event was not dispatched")
	errBadOrder         = errors.New("events dispatched in the wrong order")
	errBddBoom          = errors.New("bdd boom")
)

// dispatchTestContext holds the state for BDD scenarios.
type dispatchTestContext struct {
	manager *Manager
	values  map[string]*Value
	order   []string
	tailRan bool
}

func (c *dispatchTestContext) reset() {
	c.manager = New()
	c.values = make(map[string]*Value)
	c.order = nil
	c.tailRan = false
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		c.order = append(c.order, e.Name)
		return nil, nil
	}, WithChannel(Wildcard), WithPriority(1000)))
}

func (c *dispatchTestContext) aHandlerReturning(name, result string) error {
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		return result, nil
	}, WithNames(name)))
	return nil
}

func (c *dispatchTestContext) aTruthyFilterAtPriority(name string, priority int) error {
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		return true, nil
	}, WithNames(name), AsFilter(), WithPriority(float64(priority))))
	return nil
}

func (c *dispatchTestContext) aHandlerAtPriority(name string, priority int) error {
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		c.tailRan = true
		return nil, nil
	}, WithNames(name), WithPriority(float64(priority))))
	return nil
}

func (c *dispatchTestContext) aFailingHandler(name string) error {
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		return nil, errBddBoom
	}, WithNames(name)))
	return nil
}

func (c *dispatchTestContext) aHandlerFiring(name, child string) error {
	c.manager.AddHandler(NewHandler(func(e *Event) (any, error) {
		c.manager.Fire(NewEvent(child))
		return nil, nil
	}, WithNames(name)))
	return nil
}

func (c *dispatchTestContext) fireAndFlush(name string) error {
	c.values[name] = c.manager.Fire(NewEvent(name))
	for c.manager.Pending() > 0 {
		c.manager.Flush()
	}
	return nil
}

func (c *dispatchTestContext) fireWithSuccessAndFlush(name string) error {
	e := NewEvent(name)
	e.Success = true
	c.values[name] = c.manager.Fire(e)
	for c.manager.Pending() > 0 {
		c.manager.Flush()
	}
	return nil
}

func (c *dispatchTestContext) valueShouldBe(name, want string) error {
	v, ok := c.values[name]
	if !ok {
		return fmt.Errorf("%w: %s was never fired", errValueMismatch, name)
	}
	if v.Result() != want {
		return fmt.Errorf("%w: got %v, want %s", errValueMismatch, v.Result(), want)
	}
	return nil
}

func (c *dispatchTestContext) valueShouldHaveNoErrors(name string) error {
	if c.values[name].Errors() {
		return errUnexpectedErrors
	}
	return nil
}

func (c *dispatchTestContext) valueShouldHaveErrors(name string) error {
	if !c.values[name].Errors() {
		return errExpectedErrors
	}
	return nil
}

func (c *dispatchTestContext) tailShouldNotHaveRun() error {
	if c.tailRan {
		return errHandlerRan
	}
	return nil
}

func (c *dispatchTestContext) eventShouldHaveBeenDispatched(name string) error {
	for _, n := range c.order {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errEventNotSeen, name)
}

func (c *dispatchTestContext) dispatchedBefore(first, second string) error {
	fi, si := -1, -1
	for i, n := range c.order {
		if n == first && fi < 0 {
			fi = i
		}
		if n == second && si < 0 {
			si = i
		}
	}
	if fi < 0 || si < 0 || fi >= si {
		return fmt.Errorf("%w: %s must precede %s (order %v)", errBadOrder, first, second, c.order)
	}
	return nil
}

// InitializeDispatchScenario wires the step definitions.
func InitializeDispatchScenario(ctx *godog.ScenarioContext) {
	testCtx := &dispatchTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^a manager with a handler for "([^"]*)" returning "([^"]*)"$`, testCtx.aHandlerReturning)
	ctx.Step(`^a manager with a truthy filter for "([^"]*)" at priority (\d+)$`, testCtx.aTruthyFilterAtPriority)
	ctx.Step(`^a handler for "([^"]*)" at priority (\d+)$`, testCtx.aHandlerAtPriority)
	ctx.Step(`^a manager with a failing handler for "([^"]*)"$`, testCtx.aFailingHandler)
	ctx.Step(`^a manager with a handler for "([^"]*)" that fires "([^"]*)"$`, testCtx.aHandlerFiring)
	ctx.Step(`^a handler for "([^"]*)" returning "([^"]*)"$`, testCtx.aHandlerReturning)
	ctx.Step(`^I fire "([^"]*)" and flush the queue$`, testCtx.fireAndFlush)
	ctx.Step(`^I fire "([^"]*)" with success tracking and flush the queue$`, testCtx.fireWithSuccessAndFlush)
	ctx.Step(`^the value of "([^"]*)" should be "([^"]*)"$`, testCtx.valueShouldBe)
	ctx.Step(`^the value of "([^"]*)" should have no errors$`, testCtx.valueShouldHaveNoErrors)
	ctx.Step(`^the value of "([^"]*)" should have errors$`, testCtx.valueShouldHaveErrors)
	ctx.Step(`^the priority 0 handler should not have run$`, testCtx.tailShouldNotHaveRun)
	ctx.Step(`^an "([^"]*)" event should have been dispatched$`, testCtx.eventShouldHaveBeenDispatched)
	ctx.Step(`^"([^"]*)" should be dispatched before "([^"]*)"$`, testCtx.dispatchedBefore)
}

// TestEventDispatchBDD runs the BDD tests for event dispatch.
func TestEventDispatchBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeDispatchScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/event_dispatch.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
