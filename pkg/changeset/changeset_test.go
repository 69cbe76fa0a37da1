package changeset

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestChangeSet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ChangeSet")
}

type item struct{ name string }

var _ = Describe("Change", func() {
	It("should report single-item changes as non-range", func() {
		c := NewAdd(&item{"a"}, 0)
		Expect(c.IsRange()).To(BeFalse())
		Expect(c.Affected()).To(HaveLen(1))
	})

	It("should carry range items in order", func() {
		a, b := &item{"a"}, &item{"b"}
		c := NewAddRange([]*item{a, b}, 0)
		Expect(c.IsRange()).To(BeTrue())
		Expect(c.Affected()).To(Equal([]*item{a, b}))
	})

	It("should carry the replaced item", func() {
		old, repl := &item{"old"}, &item{"new"}
		c := NewReplace(repl, old, 2)
		Expect(c.Current).To(BeIdenticalTo(repl))
		Expect(c.Previous).To(BeIdenticalTo(old))
		Expect(c.Index).To(Equal(2))
	})
})

var _ = Describe("ChangeSet", func() {
	It("should count adds and removes across item and range changes", func() {
		a, b, c := &item{"a"}, &item{"b"}, &item{"c"}
		cs := ChangeSet[*item]{
			NewAddRange([]*item{a, b}, 0),
			NewAdd(c, 2),
			NewRemove(a, 0),
			NewClear([]*item{b, c}),
		}
		Expect(cs.Adds()).To(Equal(3))
		Expect(cs.Removes()).To(Equal(3))
		Expect(cs.Empty()).To(BeFalse())
	})

	It("should report an empty changeset", func() {
		Expect(ChangeSet[*item]{}.Empty()).To(BeTrue())
	})
})

var _ = Describe("Snapshot", func() {
	var (
		a, b, c *item
		s       *Snapshot[*item]
	)

	BeforeEach(func() {
		a, b, c = &item{"a"}, &item{"b"}, &item{"c"}
		s = NewSnapshot(a, b)
	})

	It("should hold the initial items in order", func() {
		Expect(s.Items()).To(Equal([]*item{a, b}))
		Expect(s.Len()).To(Equal(2))
		Expect(s.Contains(a)).To(BeTrue())
		Expect(s.Contains(c)).To(BeFalse())
	})

	It("should apply adds at the given index", func() {
		s.Apply(ChangeSet[*item]{NewAdd(c, 1)})
		Expect(s.Items()).To(Equal([]*item{a, c, b}))
	})

	It("should append adds with an unknown index", func() {
		s.Apply(ChangeSet[*item]{NewAdd(c, NoIndex)})
		Expect(s.Items()).To(Equal([]*item{a, b, c}))
	})

	It("should apply range adds", func() {
		d := &item{"d"}
		s.Apply(ChangeSet[*item]{NewAddRange([]*item{c, d}, 0)})
		Expect(s.Items()).To(Equal([]*item{c, d, a, b}))
	})

	It("should remove by identity even with a stale index", func() {
		s.Apply(ChangeSet[*item]{NewRemove(b, 0)})
		Expect(s.Items()).To(Equal([]*item{a}))
		Expect(s.Contains(b)).To(BeFalse())
	})

	It("should ignore removes of unknown items", func() {
		s.Apply(ChangeSet[*item]{NewRemove(c, NoIndex)})
		Expect(s.Items()).To(Equal([]*item{a, b}))
	})

	It("should swap identities on replace", func() {
		s.Apply(ChangeSet[*item]{NewReplace(c, a, 0)})
		Expect(s.Items()).To(Equal([]*item{c, b}))
		Expect(s.Contains(a)).To(BeFalse())
		Expect(s.Contains(c)).To(BeTrue())
	})

	It("should reposition items on move", func() {
		s.Apply(ChangeSet[*item]{NewAdd(c, 2), NewMove(a, 0, 2)})
		Expect(s.Items()).To(Equal([]*item{b, c, a}))
	})

	It("should keep content unchanged on refresh", func() {
		s.Apply(ChangeSet[*item]{NewRefresh(a, 0)})
		Expect(s.Items()).To(Equal([]*item{a, b}))
	})

	It("should drop everything on clear", func() {
		s.Apply(ChangeSet[*item]{NewClear([]*item{a, b})})
		Expect(s.Len()).To(BeZero())
		Expect(s.Contains(a)).To(BeFalse())
	})

	It("should track duplicate identities with multiplicity", func() {
		s.Apply(ChangeSet[*item]{NewAdd(a, NoIndex)})
		Expect(s.Len()).To(Equal(3))
		s.Apply(ChangeSet[*item]{NewRemove(a, NoIndex)})
		Expect(s.Contains(a)).To(BeTrue())
		s.Apply(ChangeSet[*item]{NewRemove(a, NoIndex)})
		Expect(s.Contains(a)).To(BeFalse())
	})
})
