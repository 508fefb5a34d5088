package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/awilfox/orinoco/internal/lastfm"
)

// registerCommands builds the static command registry. Policy flags follow
// the services account of the sender, resolved by the dispatcher before any
// handler runs.
func (c *Client) registerCommands() {
	for _, cmd := range []*command{
		{name: "np", run: c.cmdNowPlaying},
		{name: "follow", requiresAuth: true, run: c.cmdFollow},
		{name: "unfollow", requiresAuth: true, run: c.cmdUnfollow},
		{name: "help", run: c.cmdHelp},
		{name: "nick", requiresAuth: true, adminOnly: true, run: c.cmdNick},
		{name: "quit", requiresAuth: true, adminOnly: true, run: c.cmdQuit},
	} {
		c.disp.commands[cmd.name] = cmd
	}
}

// lookupAccount picks the Last.FM account a np query refers to: an explicit
// argument wins, then the sender's configured mapping, then their nick.
func lookupAccount(args string, id Identity, accounts map[string]string) string {
	if fields := strings.Fields(args); len(fields) > 0 {
		return fields[0]
	}
	if mapped, ok := accounts[id.Nick]; ok {
		return mapped
	}
	return id.Nick
}

func (c *Client) cmdNowPlaying(replyTo, args string, id Identity) {
	account := lookupAccount(args, id, c.cfg.Accounts)

	track, err := c.lastfm.MostRecentTrack(context.Background(), account)
	switch {
	case errors.Is(err, lastfm.ErrNoTracks):
		c.Privmsg(replyTo, "Doesn't look like anything's been playing in a while!")
	case err != nil:
		log.Printf("Last.FM lookup for %s failed: %v", account, err)
		c.Privmsg(replyTo, "Sorry... Last.FM may be broken...")
	default:
		c.Privmsg(replyTo, track.Describe(account))
	}
}

// cmdFollow will let a user subscribe to another listener's plays.
// TODO: needs a persistence layer for subscriptions before it can do anything.
func (c *Client) cmdFollow(replyTo, args string, id Identity) {
}

func (c *Client) cmdUnfollow(replyTo, args string, id Identity) {
}

func (c *Client) cmdHelp(replyTo, args string, id Identity) {
	c.Privmsg(replyTo, "Available commands:")
	c.Privmsg(replyTo, "np [account] - show what a listener last played, or is playing now")
	c.Privmsg(replyTo, "follow <account> - get told when a listener starts something new")
	c.Privmsg(replyTo, "unfollow <account> - stop following a listener")
	c.Privmsg(replyTo, "help - this list")
}

func (c *Client) cmdNick(replyTo, args string, id Identity) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		c.Privmsg(replyTo, "Usage: nick <newnick>")
		return
	}
	newNick := fields[0]

	c.conn.SetNick(newNick)
	c.Privmsg(replyTo, fmt.Sprintf("Changed nick to %s", newNick))
}

func (c *Client) cmdQuit(replyTo, args string, id Identity) {
	c.Privmsg(replyTo, "Shutting down")

	if c.OnShutdown != nil {
		c.OnShutdown()
	}
}
