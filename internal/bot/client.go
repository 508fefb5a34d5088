package bot

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/awilfox/orinoco/internal/config"
	"github.com/awilfox/orinoco/internal/lastfm"
	"github.com/awilfox/orinoco/internal/storage"
	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/time/rate"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Client represents the IRC bot client
type Client struct {
	conn    *ircevent.Connection
	cfg     *config.Config
	disp    *dispatcher
	lastfm  *lastfm.Client
	limiter *rate.Limiter

	// Command audit trail, oldest first
	mu    sync.Mutex
	audit []string

	// Shutdown callback
	OnShutdown func()
}

// NewClient creates a new IRC client
func NewClient(cfg *config.Config) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		lastfm: lastfm.NewClient(cfg.LastFM.APIKey),
		// Two replies a second sustained, short bursts allowed.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
	}

	var err error
	c.audit, err = storage.LoadAudit(cfg.DataDir)
	if err != nil {
		log.Printf("Warning: could not load audit trail: %v", err)
	}

	// Create IRC connection
	conn := &ircevent.Connection{
		Server:       fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:         cfg.Nick,
		User:         cfg.SASLUsername,
		RealName:     cfg.RealName,
		QuitMessage:  "Shutting down",
		Debug:        false,
		UseTLS:       true,
		TLSConfig:    &tls.Config{ServerName: cfg.Server},
		SASLLogin:    cfg.SASLUsername,
		SASLPassword: cfg.SASLPassword,
	}
	c.conn = conn

	c.disp = newDispatcher(
		func(target, message string) { c.Privmsg(target, message) },
		func(nick string) { c.conn.Send("WHOIS", nick) },
		cfg.Admins,
	)
	c.disp.audit = c.logCommand
	c.registerCommands()

	// Register handlers
	c.registerHandlers()

	return c, nil
}

func (c *Client) registerHandlers() {
	c.conn.AddConnectCallback(c.onConnect)

	// Channel and private messages
	c.conn.AddCallback("PRIVMSG", c.onPrivMsg)

	// WHOIS responses carrying the sender's services account
	c.conn.AddCallback("330", c.onWhoisAccount) // RPL_WHOISACCOUNT
	c.conn.AddCallback("318", c.onWhoisEnd)     // RPL_ENDOFWHOIS
	c.conn.AddCallback("401", c.onNoSuchNick)   // ERR_NOSUCHNICK

	// Senders leaving with authorizations still pending
	c.conn.AddCallback("QUIT", c.onQuit)

	// Nick issues
	c.conn.AddCallback("433", c.onNickInUse) // ERR_NICKNAMEINUSE

	// CTCP VERSION
	c.conn.AddCallback("CTCP_VERSION", c.onCtcpVersion)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC with the given reason
func (c *Client) Quit(reason string) {
	if reason != "" {
		c.conn.QuitMessage = reason
	}
	c.conn.Quit()
}

// Privmsg sends a message, throttled so a burst of replies cannot flood
// the bot off the network.
func (c *Client) Privmsg(target, message string) {
	_ = c.limiter.Wait(context.Background())
	c.conn.Privmsg(target, message)
}

func (c *Client) onConnect(e ircmsg.Message) {
	log.Println("Connected to IRC server")

	c.conn.Join(c.cfg.Channel)

	log.Printf("Joined %s, bot initialization complete", c.cfg.Channel)
}

func (c *Client) onPrivMsg(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}

	// Server-originated lines have no sender nick; nothing to answer.
	nick := e.Nick()
	if nick == "" {
		return
	}

	target := e.Params[0]
	text := e.Params[1]

	c.disp.handleMessage(c.conn.CurrentNick(), nick, target, text)
}

func (c *Client) onWhoisAccount(e ircmsg.Message) {
	// 330 <me> <nick> <account> :is logged in as
	if len(e.Params) < 3 {
		return
	}
	c.disp.accountSeen(e.Params[1], e.Params[2])
}

func (c *Client) onWhoisEnd(e ircmsg.Message) {
	// 318 <me> <nick> :End of /WHOIS list
	if len(e.Params) < 2 {
		return
	}
	c.disp.resolved(e.Params[1])
}

func (c *Client) onNoSuchNick(e ircmsg.Message) {
	// 401 <me> <nick> :No such nick/channel
	if len(e.Params) < 2 {
		return
	}
	c.disp.dropPending(e.Params[1])
}

func (c *Client) onQuit(e ircmsg.Message) {
	if nick := e.Nick(); nick != "" {
		c.disp.dropPending(nick)
	}
}

func (c *Client) onNickInUse(e ircmsg.Message) {
	if c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	log.Printf("Nick in use, switching to alternate: %s", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)
}

func (c *Client) onCtcpVersion(e ircmsg.Message) {
	nick := e.Nick()
	reply := fmt.Sprintf("orinoco %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	c.conn.SendRaw(fmt.Sprintf("NOTICE %s :\x01VERSION %s\x01", nick, reply))
}

func (c *Client) logCommand(nick, line string) {
	timestamp := time.Now().UTC().Format("Mon Jan 02, 2006 at 15:04:05 GMT")
	entry := fmt.Sprintf("%s: %s -> %s", timestamp, nick, line)

	c.mu.Lock()
	c.audit = storage.AddAudit(c.audit, entry)
	entries := c.audit
	c.mu.Unlock()

	if err := storage.SaveAudit(c.cfg.DataDir, entries); err != nil {
		log.Printf("Error saving audit trail: %v", err)
	}
}
