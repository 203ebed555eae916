package session

import (
	"fmt"
	"math/rand"

	"github.com/gocolly/colly"
	"go.uber.org/zap"
)

// ProxyManager fetches public HTTP proxies and hands them to browser launches.
// The dashboard soft-blocks aggressive clients by IP, so rotating through a
// free pool buys a few extra runs before a cooldown is needed.
type ProxyManager struct {
	proxies []string
	logger  *zap.Logger
}

func NewProxyManager(logger *zap.Logger) *ProxyManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyManager{logger: logger}
}

// Initialize scrapes the public proxy list. Failing here is not fatal to a
// run; the caller falls back to a direct connection.
func (pm *ProxyManager) Initialize() error {
	proxies, err := fetchPublicProxies()
	if err != nil {
		return err
	}
	pm.proxies = proxies
	pm.logger.Info("fetched proxies", zap.Int("count", len(proxies)))
	return nil
}

// Pick returns a random proxy URL, or "" when the pool is empty.
func (pm *ProxyManager) Pick() string {
	if len(pm.proxies) == 0 {
		return ""
	}
	return pm.proxies[rand.Intn(len(pm.proxies))]
}

// Drop removes a proxy that failed so it is not picked again this run.
func (pm *ProxyManager) Drop(proxy string) {
	for i, p := range pm.proxies {
		if p == proxy {
			pm.proxies = append(pm.proxies[:i], pm.proxies[i+1:]...)
			return
		}
	}
}

// fetchPublicProxies scrapes free-proxy-list.net for HTTPS-capable proxies.
func fetchPublicProxies() ([]string, error) {
	collector := colly.NewCollector()
	var proxies []string

	collector.OnHTML("#list > div > div.table-responsive > div > table > tbody > tr", func(e *colly.HTMLElement) {
		ip := e.ChildText("td:nth-child(1)")
		port := e.ChildText("td:nth-child(2)")
		https := e.ChildText("td:nth-child(7)")

		if ip != "" && port != "" && https == "yes" {
			proxies = append(proxies, fmt.Sprintf("http://%s:%s", ip, port))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		zap.L().Warn("error scraping proxy list", zap.Error(err))
	})

	if err := collector.Visit("https://free-proxy-list.net/"); err != nil {
		return nil, fmt.Errorf("failed to scrape proxies: %v", err)
	}
	collector.Wait()

	if len(proxies) == 0 {
		return nil, fmt.Errorf("no proxies found")
	}
	return proxies, nil
}

// userAgents is the pool a new browser context draws from.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}
