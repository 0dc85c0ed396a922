// Package widget provides retained widget nodes, their states, and the
// message phase that delivers routed messages to those states.
//
// A Tree holds one Node per widget entity. A Node may carry a State; once per
// frame the host loop calls Dispatcher.Dispatch, which drains the message
// router entity by entity and hands each Reader to the matching state.
// Messages for entities without a state (removed widgets, stateless nodes)
// are discarded so they do not accumulate.
//
//	for each entity in router.Entities():
//	    node has state  -> state.Message(router.Drain(entity), ctx)
//	    otherwise       -> router.Discard(entity)
//
// A panic inside a state is recovered and logged; the remaining entities of
// the frame are still processed.
package widget
