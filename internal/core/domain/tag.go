package domain

// Tag is a denormalized fact derived from one action of an event, used
// to filter history without re-scanning raw events. Tags are recomputed
// from the event's action list on every persist, never hand-edited.
type Tag struct {
	EventID       string
	Direction     TagDirection
	Platform      TagPlatform
	JettonAddress *Address
	Addresses     []Address
}

type TagDirection string

const (
	TagDirectionIncoming TagDirection = "incoming"
	TagDirectionOutgoing TagDirection = "outgoing"
)

type TagPlatform string

const (
	TagPlatformNative TagPlatform = "native"
	TagPlatformJetton TagPlatform = "jetton"
)

// TagQuery is a conjunctive filter over tags. Nil fields match anything;
// the zero query matches every event.
type TagQuery struct {
	Direction     *TagDirection
	Platform      *TagPlatform
	JettonAddress *Address
	Address       *Address
}

func (q TagQuery) IsEmpty() bool {
	return q.Direction == nil && q.Platform == nil && q.JettonAddress == nil && q.Address == nil
}

// Conforms reports whether the tag matches the query. Every populated
// query field must equal the corresponding tag field; the address field
// matches when it is contained in the tag's address set.
func (t Tag) Conforms(q TagQuery) bool {
	if q.Direction != nil && t.Direction != *q.Direction {
		return false
	}

	if q.Platform != nil && t.Platform != *q.Platform {
		return false
	}

	if q.JettonAddress != nil {
		if t.JettonAddress == nil || *t.JettonAddress != *q.JettonAddress {
			return false
		}
	}

	if q.Address != nil {
		found := false
		for _, addr := range t.Addresses {
			if addr == *q.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// EventTags derives the tag set for an event as seen by owner, one or
// more tags per qualifying action. A self-transfer yields both an
// incoming and an outgoing tag.
func EventTags(event Event, owner Address) []Tag {
	var tags []Tag

	add := func(direction TagDirection, platform TagPlatform, jetton *Address, addrs ...Address) {
		tags = append(tags, Tag{
			EventID:       event.ID,
			Direction:     direction,
			Platform:      platform,
			JettonAddress: jetton,
			Addresses:     addrs,
		})
	}

	for _, action := range event.Actions {
		switch action.Type {
		case ActionTypeTonTransfer:
			a := action.TonTransfer
			if a.Sender.Address == owner {
				add(TagDirectionOutgoing, TagPlatformNative, nil, a.Recipient.Address)
			}
			if a.Recipient.Address == owner {
				add(TagDirectionIncoming, TagPlatformNative, nil, a.Sender.Address)
			}

		case ActionTypeJettonTransfer:
			a := action.JettonTransfer
			jetton := a.Jetton.Address
			if a.Sender != nil && a.Sender.Address == owner {
				var counterparty []Address
				if a.Recipient != nil {
					counterparty = append(counterparty, a.Recipient.Address)
				}
				add(TagDirectionOutgoing, TagPlatformJetton, &jetton, counterparty...)
			}
			if a.Recipient != nil && a.Recipient.Address == owner {
				var counterparty []Address
				if a.Sender != nil {
					counterparty = append(counterparty, a.Sender.Address)
				}
				add(TagDirectionIncoming, TagPlatformJetton, &jetton, counterparty...)
			}

		case ActionTypeJettonBurn:
			a := action.JettonBurn
			if a.Sender.Address == owner {
				jetton := a.Jetton.Address
				add(TagDirectionOutgoing, TagPlatformJetton, &jetton)
			}

		case ActionTypeJettonMint:
			a := action.JettonMint
			if a.Recipient.Address == owner {
				jetton := a.Jetton.Address
				add(TagDirectionIncoming, TagPlatformJetton, &jetton)
			}

		case ActionTypeJettonSwap:
			a := action.JettonSwap
			if a.UserWallet.Address != owner {
				continue
			}
			if a.JettonMasterIn != nil {
				jetton := a.JettonMasterIn.Address
				add(TagDirectionOutgoing, TagPlatformJetton, &jetton, a.Router.Address)
			} else {
				add(TagDirectionOutgoing, TagPlatformNative, nil, a.Router.Address)
			}
			if a.JettonMasterOut != nil {
				jetton := a.JettonMasterOut.Address
				add(TagDirectionIncoming, TagPlatformJetton, &jetton, a.Router.Address)
			} else {
				add(TagDirectionIncoming, TagPlatformNative, nil, a.Router.Address)
			}

		case ActionTypeSmartContract:
			a := action.SmartContract
			add(TagDirectionOutgoing, TagPlatformNative, nil, a.Contract.Address)

		case ActionTypeContractDeploy, ActionTypeUnknown:
			// no tag
		}
	}

	return tags
}
