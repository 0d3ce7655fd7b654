package emailsvc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kozihq/kozi/core"
)

var (
	// SentMessages collects messages sent in test mode.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	subjPrefix    string
	testMode      bool
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		subjPrefix:    "[" + conf.AppName + "] ",
		testMode:      conf.TestMode,
		disableOutput: conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if msg.HasRecipients() && msg.HasContent() {
		svc.send(*msg)
	}
}

func (svc consoleService) send(msg core.EmailMessage) {
	mu.Lock()
	defer mu.Unlock()

	if svc.testMode {
		SentMessages = append(SentMessages, msg)
	}
	if svc.disableOutput {
		return
	}

	tos := make([]string, len(msg.To))
	for i, to := range msg.To {
		tos[i] = to.String()
	}
	fmt.Println(strings.Repeat("-", 79))
	fmt.Printf("To: %s\n", strings.Join(tos, ", "))
	fmt.Printf("Subject: %s\n", svc.subjPrefix+msg.Subject)
	fmt.Println()
	fmt.Println(msg.BodyStr)
	fmt.Println(strings.Repeat("-", 79))
}
