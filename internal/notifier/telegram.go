package notifier

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/alertdesk/internal/utils"
)

const telegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	Token   string
	ChatID  string
	Retries int
	Delay   time.Duration

	apiURL string
	client *http.Client
}

func NewTelegramNotifier(token, chatID, proxyURL string, retries int, delay time.Duration) *TelegramNotifier {
	transport := http.DefaultTransport
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport = &http.Transport{Proxy: http.ProxyURL(u)}
		} else {
			utils.GetLogger().Warnf("Notifier | invalid proxy url %q: %v", proxyURL, err)
		}
	}
	if retries < 1 {
		retries = 1
	}
	return &TelegramNotifier{
		Token:   token,
		ChatID:  chatID,
		Retries: retries,
		Delay:   delay,
		apiURL:  telegramAPI,
		client:  &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Send(message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.Token)
	resp, err := t.client.PostForm(apiURL, url.Values{
		"chat_id": {t.ChatID},
		"text":    {message},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send failed: %s", resp.Status)
	}
	return nil
}

// SendWithRetry tries Send up to Retries times, sleeping Delay in between.
func (t *TelegramNotifier) SendWithRetry(message string) error {
	var err error
	for i := 1; i <= t.Retries; i++ {
		if err = t.Send(message); err == nil {
			return nil
		}
		utils.GetLogger().Warnf("Notifier | telegram attempt %d/%d failed: %v", i, t.Retries, err)
		if i < t.Retries {
			time.Sleep(t.Delay)
		}
	}
	return err
}

func (t *TelegramNotifier) Notify(message, title string, severity Severity) error {
	return t.SendWithRetry(formatTelegram(message, title, severity))
}

// PlaySound is a no-op: a chat message already rings on the device.
func (t *TelegramNotifier) PlaySound(string) error {
	return nil
}

func formatTelegram(message, title string, severity Severity) string {
	var icon string
	switch severity {
	case SeveritySuccess:
		icon = "🟢"
	case SeverityWarning:
		icon = "🟠"
	case SeverityError:
		icon = "🔴"
	default:
		icon = "⚪"
	}
	if title == "" {
		return icon + " " + message
	}
	return strings.Join([]string{icon + " " + title, message}, "\n")
}
