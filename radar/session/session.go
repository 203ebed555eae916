// Package session owns the browser: launching it, keeping a logged-in
// dashboard session alive, and navigating around rate limits, soft blocks
// and verification challenges. Everything above this package works on page
// snapshots; everything that touches the live page goes through here.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"productradar/pkg/retry"
	"productradar/radar/config"
	"productradar/radar/locator"
)

// ErrBlocked marks a navigation that landed on a verification challenge.
// Challenges are transient: the caller cools down and retries instead of
// failing the run.
var ErrBlocked = errors.New("verification challenge present")

// StatusError is a navigation that completed with a bad HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("navigation returned status %d", e.Code)
}

// retryableNav classifies navigation failures. Timeouts and blocks are
// always retryable; status errors follow the shared policy.
func retryableNav(err error) bool {
	if errors.Is(err, ErrBlocked) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retry.RetryableStatus(se.Code)
	}
	// playwright timeouts and transport hiccups
	return true
}

// stealthScript papers over the most common automation tells before any
// page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// Session is one live browser session against the dashboard.
type Session struct {
	cfg    config.Config
	logger *zap.Logger

	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
}

// Open launches the browser, applies the stealth profile and restores any
// persisted cookies. The caller must Close the session.
func Open(cfg config.Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %v", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
	}
	var pm *ProxyManager
	var proxy string
	if cfg.UseProxies {
		pm = NewProxyManager(logger)
		if err := pm.Initialize(); err != nil {
			logger.Warn("proxy pool unavailable, connecting directly", zap.Error(err))
		} else if proxy = pm.Pick(); proxy != "" {
			launchOpts.Proxy = &playwright.Proxy{Server: proxy}
			logger.Info("launching browser behind proxy", zap.String("proxy", proxy))
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil && proxy != "" {
		// a dead proxy must not be picked again this run
		pm.Drop(proxy)
		logger.Warn("proxy launch failed, dropping proxy and connecting directly",
			zap.String("proxy", proxy), zap.Error(err))
		launchOpts.Proxy = nil
		browser, err = pw.Chromium.Launch(launchOpts)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(randomUserAgent()),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %v", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browserCtx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %v", err)
	}
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		logger.Warn("failed to install stealth script", zap.Error(err))
	}

	s := &Session{cfg: cfg, logger: logger, pw: pw, browser: browser, browserCtx: browserCtx, page: page}
	if err := s.restoreCookies(); err != nil {
		logger.Debug("no session to restore", zap.Error(err))
	}
	return s, nil
}

// Close persists cookies and tears the browser down.
func (s *Session) Close() {
	if err := s.SaveCookies(); err != nil {
		s.logger.Warn("failed to persist session cookies", zap.Error(err))
	}
	if s.browserCtx != nil {
		_ = s.browserCtx.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

// Page exposes the live page for interaction-heavy callers.
func (s *Session) Page() playwright.Page { return s.page }

// HumanDelay sleeps for a uniformly random interval in the configured range.
func (s *Session) HumanDelay() {
	min, max := s.cfg.DelayMin, s.cfg.DelayMax
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// NormalizeLocale rewrites localized dashboard paths onto the English
// variant the locator labels are tuned for.
func NormalizeLocale(url string) string {
	return strings.Replace(url, "/ru/", "/en/", 1)
}

// NavigateWithRetry loads a URL, retrying on bad status, timeout and
// verification challenges with exponential backoff. A challenge additionally
// costs a fixed cooldown before the next attempt. Failure is reported, not
// escalated: the caller skips the page and moves on.
func (s *Session) NavigateWithRetry(ctx context.Context, url string) error {
	url = NormalizeLocale(url)

	policy := retry.Navigation(s.cfg.MaxRetries, s.cfg.RetryBase, s.logger)
	policy.Retryable = retryableNav

	return retry.Do(ctx, policy, func() error {
		s.HumanDelay()

		if err := s.goTo(url); err != nil {
			return err
		}
		if s.IsBlocked() {
			s.logger.Warn("verification challenge detected, cooling down",
				zap.String("url", url),
				zap.Duration("cooldown", s.cfg.BlockCooldown))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.BlockCooldown):
			}
			return ErrBlocked
		}
		return nil
	})
}

func (s *Session) goTo(url string) error {
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %v", url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return &StatusError{Code: resp.Status()}
	}
	return nil
}

// blockSelectors are markup patterns of known verification widgets.
var blockSelectors = []string{
	`iframe[src*="captcha"]`,
	`[class*="captcha"]`,
	`[id*="captcha"]`,
	`[class*="geetest"]`,
	`[class*="verify-wrap"]`,
	`[class*="challenge-form"]`,
}

// blockKeywords cover the phrasing of challenge pages in the languages the
// dashboard serves.
var blockKeywords = []string{
	"verify you are human",
	"security check",
	"unusual traffic",
	"access denied",
	"подтвердите, что вы человек",
	"проверка безопасности",
	"необычный трафик",
}

// IsBlocked scans the current page for verification indicators.
func (s *Session) IsBlocked() bool {
	for _, sel := range blockSelectors {
		elements, err := s.page.QuerySelectorAll(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if visible, _ := el.IsVisible(); visible {
				return true
			}
		}
	}

	content, err := s.page.Content()
	if err != nil {
		return false
	}
	lower := strings.ToLower(content)
	for _, kw := range blockKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Login form discovery: selector candidates per field, in the order they
// have worked across dashboard versions and locales.
var (
	emailSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
		`input[placeholder*="mail" i]`,
		`input[placeholder*="почт" i]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input[placeholder*="password" i]`,
		`input[placeholder*="пароль" i]`,
	}
	submitSelectors = []string{
		`button[type="submit"]`,
		`button:has-text("Log in")`,
		`button:has-text("Sign in")`,
		`button:has-text("Войти")`,
	}
	loggedInSelectors = []string{
		`a[href*="logout"]`,
		`a[href*="/account"]`,
		`[class*="avatar"]`,
		`[class*="user-info"]`,
		`[class*="profile-menu"]`,
	}
)

// EnsureLoggedIn verifies the session and performs the login flow when
// needed. A restored cookie jar usually makes this a no-op.
func (s *Session) EnsureLoggedIn(ctx context.Context) error {
	if err := s.NavigateWithRetry(ctx, s.cfg.DashboardURL); err != nil {
		return fmt.Errorf("failed to reach dashboard: %v", err)
	}
	if s.isLoggedIn() {
		s.logger.Info("session restored from cookies")
		return nil
	}

	if s.cfg.Email == "" || s.cfg.Password == "" {
		return fmt.Errorf("not logged in and no credentials configured")
	}

	s.logger.Info("logging in", zap.String("url", s.cfg.LoginURL))
	if err := s.NavigateWithRetry(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("failed to reach login page: %v", err)
	}

	emailField, err := s.firstVisible(emailSelectors)
	if err != nil {
		s.Screenshot("login-no-email-field")
		return fmt.Errorf("failed to find email field: %v", err)
	}
	passwordField, err := s.firstVisible(passwordSelectors)
	if err != nil {
		s.Screenshot("login-no-password-field")
		return fmt.Errorf("failed to find password field: %v", err)
	}

	if err := emailField.Fill(s.cfg.Email); err != nil {
		return fmt.Errorf("failed to fill email: %v", err)
	}
	s.HumanDelay()
	if err := passwordField.Fill(s.cfg.Password); err != nil {
		return fmt.Errorf("failed to fill password: %v", err)
	}
	s.HumanDelay()

	if submit, err := s.firstVisible(submitSelectors); err == nil {
		if err := submit.Click(); err != nil {
			return fmt.Errorf("failed to click submit: %v", err)
		}
	} else if err := passwordField.Press("Enter"); err != nil {
		return fmt.Errorf("failed to submit login form: %v", err)
	}

	if err := s.page.WaitForLoadState(); err != nil {
		s.logger.Warn("post-login load state wait failed", zap.Error(err))
	}
	s.HumanDelay()

	if !s.isLoggedIn() {
		s.Screenshot("login-failed")
		return fmt.Errorf("login did not produce an authenticated session")
	}

	s.logger.Info("login successful")
	if err := s.SaveCookies(); err != nil {
		s.logger.Warn("failed to persist session cookies", zap.Error(err))
	}
	return nil
}

// isLoggedIn applies the strict heuristic: not on a login path, no visible
// login form, and at least one logged-in indicator present.
func (s *Session) isLoggedIn() bool {
	if strings.Contains(s.page.URL(), "/login") {
		return false
	}
	if el, _ := s.page.QuerySelector(`input[type="password"]`); el != nil {
		if visible, _ := el.IsVisible(); visible {
			return false
		}
	}
	for _, sel := range loggedInSelectors {
		elements, err := s.page.QuerySelectorAll(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if visible, _ := el.IsVisible(); visible {
				return true
			}
		}
	}
	return false
}

// firstVisible walks a selector candidate list, waiting briefly for each to
// become visible before trying the next.
func (s *Session) firstVisible(selectors []string) (playwright.Locator, error) {
	var lastErr error
	for _, sel := range selectors {
		loc := s.page.Locator(sel).First()
		err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(2000),
		})
		if err == nil {
			return loc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no candidate selector became visible: %v", lastErr)
}

// SaveCookies writes the context's cookie jar next to the config.
func (s *Session) SaveCookies() error {
	if s.browserCtx == nil {
		return nil
	}
	cookies, err := s.browserCtx.Cookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %v", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %v", err)
	}
	if dir := filepath.Dir(s.cfg.CookiesFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cookies dir: %v", err)
		}
	}
	return os.WriteFile(s.cfg.CookiesFile, data, 0o600)
}

func (s *Session) restoreCookies() error {
	data, err := os.ReadFile(s.cfg.CookiesFile)
	if err != nil {
		return err
	}
	var cookies []playwright.OptionalCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("failed to decode cookies: %v", err)
	}
	if len(cookies) == 0 {
		return nil
	}
	if err := s.browserCtx.AddCookies(cookies); err != nil {
		return fmt.Errorf("failed to restore cookies: %v", err)
	}
	s.logger.Info("restored session cookies", zap.Int("count", len(cookies)))
	return nil
}

// ScrollIncrementally nudges the page down in discrete steps with pauses so
// lazy-loaded cards materialize the way they do for a human reader.
func (s *Session) ScrollIncrementally(ctx context.Context, steps int) {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := s.page.Evaluate(`window.scrollBy(0, window.innerHeight * 0.8)`); err != nil {
			s.logger.Debug("scroll step failed", zap.Error(err))
			return
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
}

// Snapshot parses the current DOM into a locator page.
func (s *Session) Snapshot() (*locator.Page, error) {
	html, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %v", err)
	}
	return locator.ParsePage(html)
}

// Screenshot captures a diagnostic full-page screenshot; failures are logged
// and swallowed since diagnostics never break a run.
func (s *Session) Screenshot(name string) {
	if err := os.MkdirAll(s.cfg.ScreenshotsDir, 0o755); err != nil {
		s.logger.Warn("failed to create screenshots dir", zap.Error(err))
		return
	}
	path := filepath.Join(s.cfg.ScreenshotsDir,
		fmt.Sprintf("%s-%s.png", name, time.Now().Format("20060102-150405")))
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.logger.Warn("failed to capture screenshot", zap.Error(err))
		return
	}
	s.logger.Info("diagnostic screenshot captured", zap.String("path", path))
}
