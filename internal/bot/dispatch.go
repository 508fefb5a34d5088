package bot

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// authWait bounds how long a pending authorization may sit unresolved
// before it is evicted.
const authWait = 60 * time.Second

// Identity is a sender as the network knows them. Nick is always set;
// Account only when the sender is authenticated with services.
type Identity struct {
	Nick    string
	Account string
}

// handlerFunc runs a command once the auth gate has passed it.
type handlerFunc func(replyTo, args string, id Identity)

// command couples a handler with its authorization policy.
type command struct {
	name         string
	requiresAuth bool
	adminOnly    bool
	run          handlerFunc
}

// pendingAuth is one command suspended while WHOIS resolves the sender's
// services account. It is consumed exactly once, or evicted.
type pendingAuth struct {
	replyTo string
	args    string
	cmd     *command
	nick    string
	account string
}

// dispatcher routes addressed messages through the command registry and
// enforces per-command authorization once the sender's account is known.
// Account resolution is a WHOIS round-trip, so dispatch parks the command
// in a per-nick FIFO queue and returns without blocking the event loop.
type dispatcher struct {
	say      func(target, message string)
	whois    func(nick string)
	audit    func(nick, line string)
	commands map[string]*command
	admins   map[string]bool
	wait     time.Duration

	mu      sync.Mutex
	pending map[string][]*pendingAuth
}

func newDispatcher(say func(target, message string), whois func(nick string), admins []string) *dispatcher {
	d := &dispatcher{
		say:      say,
		whois:    whois,
		commands: make(map[string]*command),
		admins:   make(map[string]bool),
		wait:     authWait,
		pending:  make(map[string][]*pendingAuth),
	}
	for _, a := range admins {
		d.admins[a] = true
	}
	return d
}

// handleMessage runs one inbound channel line. Lines not addressed to the
// bot are dropped silently; an unrecognized command gets a reply.
func (d *dispatcher) handleMessage(me, sender, target, text string) {
	r, ok := routeMessage(me, sender, target, text)
	if !ok {
		return
	}

	cmd, ok := d.commands[r.command]
	if !ok {
		d.say(r.replyTo, fmt.Sprintf("Unknown command '%s'.", r.command))
		return
	}

	if d.audit != nil {
		line := r.command
		if r.args != "" {
			line += " " + r.args
		}
		d.audit(sender, line)
	}

	// Every command goes through identity resolution, even ones needing
	// no auth, so the policy checks always see a conclusive answer.
	p := &pendingAuth{replyTo: r.replyTo, args: r.args, cmd: cmd, nick: sender}
	d.mu.Lock()
	d.pending[sender] = append(d.pending[sender], p)
	d.mu.Unlock()

	d.whois(sender)
	time.AfterFunc(d.wait, func() { d.expire(sender, p) })
}

// accountSeen records a WHOIS account reply against the oldest pending
// authorization for nick.
func (d *dispatcher) accountSeen(nick, account string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q := d.pending[nick]; len(q) > 0 {
		q[0].account = account
	}
}

// resolved completes the oldest pending authorization for nick. A WHOIS
// that ended without an account reply resolves to an unauthenticated
// identity, not an error.
func (d *dispatcher) resolved(nick string) {
	d.mu.Lock()
	q := d.pending[nick]
	if len(q) == 0 {
		d.mu.Unlock()
		return
	}
	p := q[0]
	if len(q) == 1 {
		delete(d.pending, nick)
	} else {
		d.pending[nick] = q[1:]
	}
	d.mu.Unlock()

	d.finish(p)
}

// dropPending discards every pending authorization for nick without a
// reply. The sender is gone and could not receive one anyway.
func (d *dispatcher) dropPending(nick string) {
	d.mu.Lock()
	delete(d.pending, nick)
	d.mu.Unlock()
}

func (d *dispatcher) expire(nick string, p *pendingAuth) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.pending[nick]
	for i, cand := range q {
		if cand != p {
			continue
		}
		q = append(q[:i:i], q[i+1:]...)
		if len(q) == 0 {
			delete(d.pending, nick)
		} else {
			d.pending[nick] = q
		}
		log.Printf("Authorization for %s (%s) expired unresolved", nick, p.cmd.name)
		return
	}
}

// finish applies the authorization policy and, if it passes, runs the
// handler. The authentication check always comes before the admin check.
func (d *dispatcher) finish(p *pendingAuth) {
	id := Identity{Nick: p.nick, Account: p.account}

	if p.cmd.requiresAuth && id.Account == "" {
		d.say(p.replyTo, fmt.Sprintf("Sorry %s; you have to be authenticated.", id.Nick))
		return
	}
	if p.cmd.adminOnly && !d.admins[id.Account] {
		d.say(p.replyTo, fmt.Sprintf("Don't violate me, %s, I'm just a little fox ._.", id.Nick))
		return
	}

	p.cmd.run(p.replyTo, p.args, id)
}
