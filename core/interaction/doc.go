// Package interaction enforces the once-only response lifecycle of an inbound
// interaction event.
//
// A Lifecycle is created per interaction with its id, webhook token, kind and
// an auto-ack policy. The handler drives it through the response verbs; the
// HTTP boundary awaits the initial response and reports back when it reached
// the transport:
//
//	lc, err := interaction.New(client, interaction.Interaction{
//		ID:    inter.ID,
//		Token: inter.Token,
//		Kind:  interaction.KindApplicationCommand,
//	}, interaction.PolicyAckEphemeral)
//	if err != nil { ... }
//	defer lc.Close()
//
//	go handler(lc) // calls Ack, CompleteOrFollowup, EditOriginal, ...
//
//	resp, err := lc.AwaitResponse(ctx) // write resp to the HTTP response
//	lc.MarkFlushed()
//
// # State machine
//
// Received → Thinking (ack) → MessageSent (any reply); MessageSent is
// re-entrant. Edits, fetches, deletes and follow-ups before an ack or reply
// fail with an InvalidStateError naming the verb and the state; nothing is
// corrupted, the same verb succeeds once a response exists.
//
// All verbs run on a single consumer queue in submission order, each under
// its own bounded deadline. An expired operation fails alone; the interaction
// survives. The whole lifecycle ends at the vendor's token validity horizon
// (15 minutes) or on Close, resolving every waiter with the close reason.
//
// # Auto-ack
//
// With PolicyAckEphemeral or PolicyAckPublic an interaction still unanswered
// shortly before the vendor's 3 second initial-response deadline is deferred
// automatically, exactly once. A later CompleteOrFollowup degrades to a
// follow-up instead of duplicating the initial response.
//
// Webhook calls are gated on MarkFlushed so they never hit the vendor before
// the initial response was delivered.
package interaction
