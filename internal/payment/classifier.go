package payment

import "tokoledger/internal/domain"

// Classifier maps a payment method's kind tag to the drawer bucket it
// settles into. Cash settles in the drawer, card kinds settle with the
// acquirer, everything else is grouped as other.
type Classifier struct {
	buckets map[string]string
}

func defaultBuckets() map[string]string {
	return map[string]string{
		domain.PaymentKindCash:     domain.BucketCash,
		domain.PaymentKindCard:     domain.BucketCard,
		domain.PaymentKindDebit:    domain.BucketCard,
		domain.PaymentKindQRIS:     domain.BucketOther,
		domain.PaymentKindEwallet:  domain.BucketOther,
		domain.PaymentKindTransfer: domain.BucketOther,
	}
}

// NewClassifier builds a classifier with the default kind mapping.
// Overrides replace or extend individual kind entries.
func NewClassifier(overrides map[string]string) *Classifier {
	buckets := defaultBuckets()
	for kind, bucket := range overrides {
		buckets[kind] = bucket
	}
	return &Classifier{buckets: buckets}
}

// Classify returns the bucket for a kind tag. Unknown kinds fall into
// the other bucket rather than failing the sale.
func (c *Classifier) Classify(kind string) string {
	if bucket, ok := c.buckets[kind]; ok {
		return bucket
	}
	return domain.BucketOther
}
