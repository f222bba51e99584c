package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightPage はplaywright.PageをPageインターフェースに適合させる。
type playwrightPage struct {
	page playwright.Page
}

var _ Page = (*playwrightPage)(nil)

func (p *playwrightPage) Goto(url string) error {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) WaitForNetworkIdle() error {
	if err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Fill(selector, value string) error {
	if err := p.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) TypeSlowly(selector, text string, delay time.Duration) error {
	loc := p.page.Locator(selector).First()
	if err := loc.Click(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	if err := loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) Click(selector string) error {
	if err := p.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) WaitVisible(selector string, timeout time.Duration) error {
	if err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) IsVisible(selector string) (bool, error) {
	return p.page.Locator(selector).First().IsVisible()
}

func (p *playwrightPage) TextContent(selector string) (string, error) {
	return p.page.Locator(selector).First().TextContent()
}

func (p *playwrightPage) FillEach(selector string, values []string) (int, error) {
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return 0, fmt.Errorf("locate %s: %w", selector, err)
	}
	filled := 0
	for i, v := range values {
		if i >= len(locs) {
			break
		}
		if err := locs[i].Fill(v); err != nil {
			return filled, fmt.Errorf("fill %s[%d]: %w", selector, i, err)
		}
		filled++
	}
	return filled, nil
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) BodyText() (string, error) {
	return p.page.Locator("body").InnerText()
}

func (p *playwrightPage) MoveMouse(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
