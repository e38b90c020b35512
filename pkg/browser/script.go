package browser

// Names of the bindings exposed to the page.
const (
	bindingMutations = "__pagekeeperMutations"
	bindingEvent     = "__pagekeeperEvent"
)

// observeScript installs the page's MutationObserver. Each callback
// invocation reports one batch of childList records.
const observeScript = `() => {
  if (window.__pagekeeperObserver) {
    return;
  }
  const observer = new MutationObserver((records) => {
    window.` + bindingMutations + `(records.map((r) => ({
      type: r.type,
      target: r.target && r.target.nodeName ? r.target.nodeName.toLowerCase() : "",
      attribute: r.attributeName || "",
      added: r.addedNodes.length,
      removed: r.removedNodes.length,
    })));
  });
  observer.observe(document.body, { childList: true, subtree: true });
  window.__pagekeeperObserver = observer;
}`

const disconnectScript = `() => {
  if (window.__pagekeeperObserver) {
    window.__pagekeeperObserver.disconnect();
    delete window.__pagekeeperObserver;
  }
}`

// Element functions. Each runs with the element as its first argument.
const (
	scriptTagName = `(el) => el.tagName.toLowerCase()`

	scriptAttr = `(el, name) => el.getAttribute(name)`

	scriptSetAttr = `(el, [name, value]) => {
  if (el.getAttribute(name) !== value) {
    el.setAttribute(name, value);
  }
}`

	scriptText = `(el) => el.textContent || ""`

	scriptValue = `(el) => (el.value === undefined || el.value === null) ? "" : String(el.value)`

	scriptSetValue = `(el, value) => { el.value = value; }`

	scriptClosest = `(el, selector) => el.closest(selector)`

	scriptNextSibling = `(el) => el.nextElementSibling`

	scriptAfter = `(el, other) => { el.after(other); }`

	scriptSame = `(el, other) => el === other`

	scriptStyle = `(el, property) => el.style.getPropertyValue(property)`

	// Values are compared after the browser has normalized them, so setting
	// a value that is already in place writes nothing.
	scriptSetStyle = `(el, [property, value]) => {
  if (value === "") {
    if (el.style.getPropertyValue(property) !== "") {
      el.style.removeProperty(property);
    }
    return;
  }
  const probe = document.createElement("div").style;
  probe.setProperty(property, value);
  if (el.style.getPropertyValue(property) !== probe.getPropertyValue(property)) {
    el.style.setProperty(property, value);
  }
}`

	scriptHasClass = `(el, name) => el.classList.contains(name)`

	scriptAddClass = `(el, names) => {
  for (const name of names) {
    if (!el.classList.contains(name)) {
      el.classList.add(name);
    }
  }
}`

	scriptRemoveClass = `(el, names) => {
  for (const name of names) {
    if (el.classList.contains(name)) {
      el.classList.remove(name);
    }
  }
}`

	scriptClick = `(el) => el.click()`

	scriptDispatch = `(el, type) => { el.dispatchEvent(new Event(type, { bubbles: true })); }`

	scriptListen = `(el, [type, id]) => {
  el.addEventListener(type, () => window.` + bindingEvent + `(id));
}`
)
